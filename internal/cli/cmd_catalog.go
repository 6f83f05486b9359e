package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Brand, model and location catalogs",
		Example: "  inventario catalog brand add Asus\n" +
			"  inventario catalog model add --brand Asus \"ExpertBook B9\"\n" +
			"  inventario catalog location ls",
	}
	cmd.AddCommand(
		newCatalogBrandCommand(deps),
		newCatalogModelCommand(deps),
		newCatalogLocationCommand(deps),
	)
	return cmd
}

type catalogEntryOps struct {
	kind   string
	add    func(ctx context.Context, s *session, name string) (bool, error)
	remove func(ctx context.Context, s *session, name string) (bool, error)
	list   func(s *session) []string
}

func newCatalogBrandCommand(deps commandDeps) *cobra.Command {
	return newCatalogEntryCommand(deps, catalogEntryOps{
		kind: "brand",
		add: func(ctx context.Context, s *session, name string) (bool, error) {
			return s.store.AddBrand(ctx, name)
		},
		remove: func(ctx context.Context, s *session, name string) (bool, error) {
			return s.store.RemoveBrand(ctx, name)
		},
		list: func(s *session) []string { return s.store.Brands() },
	}, nil)
}

func newCatalogLocationCommand(deps commandDeps) *cobra.Command {
	return newCatalogEntryCommand(deps, catalogEntryOps{
		kind: "location",
		add: func(ctx context.Context, s *session, name string) (bool, error) {
			return s.store.AddLocation(ctx, name)
		},
		remove: func(ctx context.Context, s *session, name string) (bool, error) {
			return s.store.RemoveLocation(ctx, name)
		},
		list: func(s *session) []string { return s.store.Locations() },
	}, nil)
}

func newCatalogModelCommand(deps commandDeps) *cobra.Command {
	var brand string
	cmd := newCatalogEntryCommand(deps, catalogEntryOps{
		kind: "model",
		add: func(ctx context.Context, s *session, name string) (bool, error) {
			return s.store.AddModel(ctx, brand, name)
		},
		remove: func(ctx context.Context, s *session, name string) (bool, error) {
			return s.store.RemoveModel(ctx, brand, name)
		},
		list: func(s *session) []string { return s.store.ModelsFor(brand) },
	}, func() error {
		if strings.TrimSpace(brand) == "" {
			return usageErrorf("catalog model requires --brand")
		}
		return nil
	})
	cmd.PersistentFlags().StringVar(&brand, "brand", "", "Brand the model belongs to")
	return cmd
}

// newCatalogEntryCommand builds the add/rm/ls trio shared by every catalog.
// precheck runs before the database is opened.
func newCatalogEntryCommand(deps commandDeps, ops catalogEntryOps, precheck func() error) *cobra.Command {
	if precheck == nil {
		precheck = func() error { return nil }
	}
	cmd := &cobra.Command{
		Use:   ops.kind,
		Short: fmt.Sprintf("Manage the %s catalog", ops.kind),
	}

	mutate := func(verb string, fn func(ctx context.Context, s *session, name string) (bool, error)) *cobra.Command {
		return &cobra.Command{
			Use:   verb + " <name>",
			Short: fmt.Sprintf("%s a %s", map[string]string{"add": "Add", "rm": "Remove"}[verb], ops.kind),
			Args: func(cmd *cobra.Command, args []string) error {
				if len(args) != 1 {
					return usageErrorf("catalog %s %s requires exactly one name", ops.kind, verb)
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := precheck(); err != nil {
					return err
				}
				return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
					changed, err := fn(ctx, s, args[0])
					if err != nil {
						return err
					}
					payload := map[string]any{"kind": ops.kind, "name": strings.TrimSpace(args[0]), "changed": changed}
					return printResult(deps, payload, func(w io.Writer) error {
						_, err := fmt.Fprintf(w, "%s %s: %s\n", ops.kind, strings.TrimSpace(args[0]), boolToState(changed, "updated", "unchanged"))
						return err
					})
				})
			},
		}
	}

	list := &cobra.Command{
		Use:   "ls",
		Short: fmt.Sprintf("List the %s catalog", ops.kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("catalog %s ls does not accept positional arguments", ops.kind)
			}
			if err := precheck(); err != nil {
				return err
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				names := ops.list(s)
				return printResult(deps, names, func(w io.Writer) error {
					for _, name := range names {
						if _, err := fmt.Fprintln(w, name); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}

	cmd.AddCommand(mutate("add", ops.add), mutate("rm", ops.remove), list)
	return cmd
}
