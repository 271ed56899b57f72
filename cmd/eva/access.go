package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eva-app/evaclient/pkg/guard"
	"github.com/eva-app/evaclient/pkg/models"
	"github.com/eva-app/evaclient/pkg/permission"
)

var errDenied = errors.New("denied")

func newCanCmd(g *globalFlags) *cobra.Command {
	var (
		roles   []string
		anyMode bool
	)

	cmd := &cobra.Command{
		Use:   "can [permission...]",
		Short: "Check permissions and roles against the stored session",
		Example: `  eva can pets:walk:create
  eva can pets:edit:update pets:edit:create --any
  eva can --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(roles) == 0 {
				return errors.New("name at least one permission or --role")
			}

			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			req := permission.Requirement{Permissions: args, Roles: roles, Mode: models.AccessAll}
			if anyMode {
				req.Mode = models.AccessAny
			}
			if !permission.New(a.session).Allows(req) {
				return errDenied
			}
			fmt.Println("allowed")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&roles, "role", nil, "required role (repeatable)")
	cmd.Flags().BoolVar(&anyMode, "any", false, "pass when any one grant is held")
	return cmd
}

func newRouteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "route <page-route>",
		Short: "Check whether the stored session may open a page route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			route := args[0]
			switch err := a.guard.Check(route); {
			case err == nil:
				fmt.Printf("%s: open\n", route)
				return nil
			case errors.Is(err, guard.ErrLoginRequired):
				fmt.Printf("%s: redirect to %s\n", route, a.guard.Redirect(route))
				return nil
			default:
				return err
			}
		},
	}
}
