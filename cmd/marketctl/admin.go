package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/tyemirov/marketclient/internal/marketplace"
	"github.com/tyemirov/marketclient/pkg/apiclient"
)

func newAdminCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "admin",
		Short: "Manage suppliers and categories (admin sessions only)",
	}

	suppliersCommand := &cobra.Command{
		Use:   "suppliers",
		Short: "List supplier accounts",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			suppliers, err := current.services.Admin.Suppliers(ctx)
			if err != nil {
				return err
			}
			return printJSON(command.OutOrStdout(), suppliers)
		}),
	}

	onboardCommand := &cobra.Command{
		Use:   "onboard",
		Short: "Onboard a supplier and print its initial password",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			var onboarding marketplace.SupplierOnboarding
			onboarding.Name, _ = command.Flags().GetString("name")
			onboarding.Email, _ = command.Flags().GetString("email")
			onboarding.ContactPerson, _ = command.Flags().GetString("contact")
			onboarding.Phone, _ = command.Flags().GetString("phone")
			supplier, err := current.services.Admin.AddSupplier(ctx, onboarding)
			if err != nil {
				return err
			}
			return printJSON(command.OutOrStdout(), supplier)
		}),
	}
	onboardCommand.Flags().String("name", "", "Supplier name")
	onboardCommand.Flags().String("email", "", "Supplier email, also its login")
	onboardCommand.Flags().String("contact", "", "Contact person")
	onboardCommand.Flags().String("phone", "", "Phone in E.164 form, e.g. +15551234567")

	command.AddCommand(
		suppliersCommand,
		onboardCommand,
		newSupplierStatusCommand("enable", "Enable a supplier account", true),
		newSupplierStatusCommand("disable", "Disable a supplier account; it can no longer sign in", false),
		newCategoriesCommand(),
	)
	return command
}

func newSupplierStatusCommand(use string, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SUPPLIER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			supplier, err := current.services.Admin.SetSupplierEnabled(ctx, arguments[0], enabled)
			if err != nil {
				return err
			}
			return printJSON(command.OutOrStdout(), supplier)
		}),
	}
}

func newCategoriesCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			categories, err := current.services.Admin.Categories(ctx)
			if err != nil {
				return err
			}
			return printJSON(command.OutOrStdout(), categories)
		}),
	}

	addCommand := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			category, err := current.services.Admin.AddCategory(ctx, arguments[0])
			if apiclient.StatusCode(err) == http.StatusConflict {
				return fmt.Errorf("category %q already exists: %w", arguments[0], err)
			}
			if err != nil {
				return err
			}
			return printJSON(command.OutOrStdout(), category)
		}),
	}

	deleteCommand := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			if err := current.services.Admin.DeleteCategory(ctx, arguments[0]); err != nil {
				return err
			}
			fmt.Fprintf(command.OutOrStdout(), "deleted category %s\n", arguments[0])
			return nil
		}),
	}

	command.AddCommand(addCommand, deleteCommand)
	return command
}
