package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/instructor"
)

func (cli *commandLine) invite(ctx context.Context, email string) error {
	inv := instructor.Invitation{Email: email}
	validate, translator := core.NewValidator()
	if err := inv.Validate(validate); err != nil {
		return fmt.Errorf("invalid email: %v", core.TranslateValidationErrors(toValidationErrors(err), translator)["email"])
	}

	ins, err := cli.insSvc.Invite(ctx, operator, inv)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "invited %s (%s)\n", ins.Email, ins.ID)
	return nil
}

func toValidationErrors(err error) validator.ValidationErrors {
	errs, _ := err.(validator.ValidationErrors)
	return errs
}
