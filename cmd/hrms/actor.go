package main

import (
	"fmt"

	"github.com/jonathan/hrms/internal/types"
	"github.com/spf13/cobra"
)

// actorFlags binds --as and --role for commands that act on records.
func actorFlags(cmd *cobra.Command, email, role *string) {
	cmd.Flags().StringVar(email, "as", "cli@localhost", "Email recorded as the actor")
	cmd.Flags().StringVar(role, "role", string(types.RoleAdmin), "Actor role (admin, ea, hr)")
}

func parseActor(email, role string) (types.Actor, error) {
	r, ok := types.ParseRole(role)
	if !ok {
		return types.Actor{}, fmt.Errorf("unknown role %q", role)
	}
	if email == "" {
		return types.Actor{}, fmt.Errorf("actor email is required")
	}
	return types.Actor{Email: email, Role: r}, nil
}
