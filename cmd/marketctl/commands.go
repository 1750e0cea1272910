package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/marketclient/internal/marketplace"
	"github.com/tyemirov/marketclient/pkg/apiclient"
	"github.com/tyemirov/marketclient/pkg/tokenstore"
)

var errMissingPassword = errors.New("login.missing_password")

type sessionRunner func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error

func withSession(run sessionRunner) func(*cobra.Command, []string) error {
	return func(command *cobra.Command, arguments []string) error {
		current, err := openSession(command)
		if err != nil {
			return err
		}
		defer current.close()
		return run(command.Context(), command, arguments, current)
	}
}

func newLoginCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token pair",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			userID, _ := command.Flags().GetString("user")
			role, _ := command.Flags().GetString("role")
			password := viper.GetString("password")
			if password == "" {
				return errMissingPassword
			}
			response, err := current.client.Login(ctx, apiclient.Credentials{UserID: userID, Password: password}, role)
			if err != nil {
				return err
			}
			storedRole, _, err := current.tokens.Role(ctx)
			if err != nil {
				return err
			}
			if storedRole == "" {
				storedRole = response.Role
			}
			fmt.Fprintf(command.OutOrStdout(), "signed in as %s; landing view %s\n", storedRole, landingView(storedRole))
			return nil
		}),
	}
	command.Flags().String("user", "", "User id or email")
	command.Flags().String("password", "", "Password (or APP_PASSWORD)")
	command.Flags().String("role", tokenstore.RoleCustomer, "Role: customer, supplier, admin")
	_ = command.MarkFlagRequired("user")
	_ = viper.BindPFlag("password", command.Flags().Lookup("password"))
	return command
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Notify the server and clear stored tokens",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			return current.client.Logout(ctx)
		}),
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			if !current.tokens.IsAuthenticated(ctx) {
				fmt.Fprintf(command.OutOrStdout(), "not signed in (token store %s)\n", current.configuration.TokenStore)
				return nil
			}
			role, _, err := current.tokens.Role(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(command.OutOrStdout(), "signed in as %s; landing view %s (token store %s)\n", role, landingView(role), current.configuration.TokenStore)
			return nil
		}),
	}
}

func newRequestCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request and print the JSON response",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			data, _ := command.Flags().GetString("data")
			noRetry, _ := command.Flags().GetBool("no_retry")
			options := apiclient.RequestOptions{Method: strings.ToUpper(arguments[0]), NoRetry: noRetry}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("%w: --data is not valid JSON", apiclient.ErrInvalidRequest)
				}
				options.Body = json.RawMessage(data)
			}
			var response json.RawMessage
			if err := current.client.Request(ctx, arguments[1], options, &response); err != nil {
				return err
			}
			if len(response) == 0 {
				return nil
			}
			return printJSON(command.OutOrStdout(), response)
		}),
	}
	command.Flags().String("data", "", "JSON request body")
	command.Flags().Bool("no_retry", false, "Do not refresh and retry on 401")
	return command
}

func newProductsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "products",
		Short: "List or search products with client-side filters",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			filter, err := filterFromFlags(command)
			if err != nil {
				return err
			}
			query, _ := command.Flags().GetString("query")
			var products []marketplace.Product
			if strings.TrimSpace(query) != "" {
				products, err = current.services.Products.Search(ctx, query, filter)
			} else {
				products, err = current.services.Products.List(ctx)
				products = filter.Apply(products)
			}
			if err != nil {
				return err
			}
			if showFacets, _ := command.Flags().GetBool("facets"); showFacets {
				return printJSON(command.OutOrStdout(), marketplace.CollectFacets(products))
			}
			return printJSON(command.OutOrStdout(), products)
		}),
	}
	command.Flags().String("query", "", "Search text")
	command.Flags().Float64("min_price", 0, "Minimum price")
	command.Flags().Float64("max_price", 0, "Maximum price")
	command.Flags().StringSlice("category", nil, "Category filter (repeatable)")
	command.Flags().StringSlice("supplier", nil, "Supplier filter (repeatable)")
	command.Flags().StringSlice("manufacturer", nil, "Manufacturer filter (repeatable)")
	command.Flags().Bool("in_stock", false, "Only products in stock")
	command.Flags().Bool("facets", false, "Print the filter facets of the result instead of the products")
	return command
}

func filterFromFlags(command *cobra.Command) (marketplace.Filter, error) {
	flags := command.Flags()
	var filter marketplace.Filter
	if flags.Changed("min_price") {
		minPrice, err := flags.GetFloat64("min_price")
		if err != nil {
			return marketplace.Filter{}, err
		}
		filter.MinPrice = &minPrice
	}
	if flags.Changed("max_price") {
		maxPrice, err := flags.GetFloat64("max_price")
		if err != nil {
			return marketplace.Filter{}, err
		}
		filter.MaxPrice = &maxPrice
	}
	filter.Categories, _ = flags.GetStringSlice("category")
	filter.Suppliers, _ = flags.GetStringSlice("supplier")
	filter.Manufacturers, _ = flags.GetStringSlice("manufacturer")
	filter.InStockOnly, _ = flags.GetBool("in_stock")
	return filter, nil
}

func newCartCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			cart, err := current.services.Cart.Get(ctx)
			if err != nil {
				return err
			}
			return printCart(command, cart)
		}),
	}

	addCommand := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			quantity, _ := command.Flags().GetInt("quantity")
			cart, err := current.services.Cart.Add(ctx, arguments[0], quantity)
			if err != nil {
				return err
			}
			return printCart(command, cart)
		}),
	}
	addCommand.Flags().Int("quantity", 1, "Units to add")

	updateCommand := &cobra.Command{
		Use:   "update PRODUCT_ID",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			quantity, _ := command.Flags().GetInt("quantity")
			cart, err := current.services.Cart.Update(ctx, arguments[0], quantity)
			if err != nil {
				return err
			}
			return printCart(command, cart)
		}),
	}
	updateCommand.Flags().Int("quantity", 1, "New quantity")

	removeCommand := &cobra.Command{
		Use:   "remove PRODUCT_ID",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			cart, err := current.services.Cart.Remove(ctx, arguments[0])
			if err != nil {
				return err
			}
			return printCart(command, cart)
		}),
	}

	clearCommand := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			cart, err := current.services.Cart.Clear(ctx)
			if err != nil {
				return err
			}
			return printCart(command, cart)
		}),
	}

	command.AddCommand(addCommand, updateCommand, removeCommand, clearCommand)
	return command
}

func printCart(command *cobra.Command, cart marketplace.Cart) error {
	return printJSON(command.OutOrStdout(), struct {
		Items     []marketplace.CartItem `json:"items"`
		ItemCount int                    `json:"itemCount"`
		Total     float64                `json:"total"`
	}{Items: cart.Items, ItemCount: cart.ItemCount(), Total: cart.Total()})
}

func newOrdersCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "orders",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			orders, err := current.services.Orders.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(command.OutOrStdout(), orders)
		}),
	}
	cancelCommand := &cobra.Command{
		Use:   "cancel ORDER_ID",
		Short: "Cancel an order that has not shipped",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, command *cobra.Command, arguments []string, current *session) error {
			order, err := current.services.Orders.Cancel(ctx, arguments[0])
			if apiclient.StatusCode(err) == http.StatusConflict {
				return fmt.Errorf("order %s can no longer be cancelled: %w", arguments[0], err)
			}
			if err != nil {
				return err
			}
			return printJSON(command.OutOrStdout(), order)
		}),
	}
	command.AddCommand(cancelCommand)
	return command
}
