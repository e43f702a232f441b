package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pointerd/pkg/token"
)

// tokenView is a generated control API token and its configuration form.
type tokenView struct {
	Token string `json:"token"`
	Hash  string `json:"hash"`
}

// TokenCommand returns the token command.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Generate a control API bearer token",
		Description: "Prints a new token and the sha256 form to place in the server's\n" +
			"server.http.auth_token, so the configuration never holds the token itself.",
		Action: func(c *cli.Context) error {
			flags, err := ParseGlobalFlags(c)
			if err != nil {
				return err
			}
			tok, err := token.Generate()
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			v := tokenView{Token: tok, Hash: token.Hash(tok)}
			k := &controller{out: outWriter(c), format: flags.Output}
			return k.print(v, fmt.Sprintf("token:       %s\nauth_token:  %s", v.Token, v.Hash))
		},
	}
}
