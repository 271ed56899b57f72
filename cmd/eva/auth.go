package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd(g *globalFlags) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange a platform login code for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				code = os.Getenv("EVA_LOGIN_CODE")
			}

			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.account.SignIn(cmd.Context(), code)
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as %s (%s) on %s.\n", u.Nickname, u.ID, a.endpoint.Env)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "login code (default $EVA_LOGIN_CODE)")
	return cmd
}

func newLogoutCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.session.IsAuthenticated() {
				fmt.Println("Not signed in.")
				return nil
			}
			a.account.SignOut()
			fmt.Println("Signed out.")
			return nil
		},
	}
}

var errNotSignedIn = errors.New("not signed in")

func newWhoamiCmd(g *globalFlags) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.session.IsAuthenticated() {
				return errNotSignedIn
			}
			u := a.session.Identity()
			if refresh {
				if u, err = a.account.RefreshIdentity(cmd.Context()); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(u)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch the identity from the server first")
	return cmd
}
