package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/erp-offline/internal/application/dto"
	"github.com/jhoicas/erp-offline/internal/bootstrap"
	"github.com/jhoicas/erp-offline/internal/domain/entity"
	"github.com/jhoicas/erp-offline/internal/infrastructure/storage"
)

type registerOptions struct {
	file       string
	identifier string
	name       string
	password   string
	plan       string
	days       int
	features   []string
	limits     map[string]int
}

// NewCompanyCommand agrupa la administración del directorio local de empresas.
func NewCompanyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Directorio local de empresas",
	}
	cmd.AddCommand(newCompanyRegisterCommand(opts))
	return cmd
}

func newCompanyRegisterCommand(opts *RootOptions) *cobra.Command {
	ro := &registerOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Registra una empresa con su contraseña y suscripción",
		Long: `Registra una empresa en el directorio local.

Con --file se lee un JSON {company, password, subscription}; si no, se arma
con los flags. La suscripción queda activa por --days días desde hoy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ro.request(time.Now())
			if err != nil {
				return err
			}
			return opts.withEngine(cmd.Context(), func(engine *storage.Engine) error {
				dir, err := bootstrap.NewDirectory(engine, opts.cfg, opts.log)
				if err != nil {
					return err
				}
				company, err := dir.RegisterCompany(cmd.Context(), req.Company, req.Password, req.Subscription)
				if err != nil {
					return fmt.Errorf("registrar %q: %w", req.Company.Identifier, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "empresa %s registrada (id %s)\n", company.Identifier, company.ID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&ro.file, "file", "", "JSON con company, password y subscription")
	f.StringVar(&ro.identifier, "identifier", "", "identificador de acceso")
	f.StringVar(&ro.name, "name", "", "razón social")
	f.StringVar(&ro.password, "password", "", "contraseña de la empresa")
	f.StringVar(&ro.plan, "plan", "basic", "plan de la suscripción")
	f.IntVar(&ro.days, "days", 365, "vigencia de la suscripción en días")
	f.StringSliceVar(&ro.features, "features", nil, "módulos habilitados (accounting,inventory,...)")
	f.StringToIntVar(&ro.limits, "limits", nil, "límites por tipo (warehouses=3,users=10)")
	return cmd
}

func (ro *registerOptions) request(now time.Time) (dto.RegisterCompanyRequest, error) {
	if ro.file != "" {
		raw, err := os.ReadFile(ro.file)
		if err != nil {
			return dto.RegisterCompanyRequest{}, fmt.Errorf("leer %s: %w", ro.file, err)
		}
		var req dto.RegisterCompanyRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return dto.RegisterCompanyRequest{}, fmt.Errorf("%s: JSON inválido: %w", ro.file, err)
		}
		return req, nil
	}

	if ro.identifier == "" || ro.password == "" {
		return dto.RegisterCompanyRequest{}, errors.New("--identifier y --password son requeridos (o --file)")
	}
	name := ro.name
	if name == "" {
		name = ro.identifier
	}
	return dto.RegisterCompanyRequest{
		Company:  entity.Company{Identifier: ro.identifier, Name: name, IsActive: true},
		Password: ro.password,
		Subscription: entity.Subscription{
			Status:    entity.SubscriptionActive,
			Plan:      ro.plan,
			StartDate: now.UTC(),
			EndDate:   now.UTC().AddDate(0, 0, ro.days),
			Features:  ro.features,
			Limits:    ro.limits,
		},
	}, nil
}
