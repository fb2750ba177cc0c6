package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"barscan/internal/api"
	"barscan/internal/catalog"
	"barscan/internal/services"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	productsCmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Manage the product catalog used to name scanned barcodes",
	}
	productsCmd.AddCommand(newProductsAddCommand(ctx))
	productsCmd.AddCommand(newProductsListCommand(ctx))
	productsCmd.AddCommand(newProductsShowCommand(ctx))
	productsCmd.AddCommand(newProductsRemoveCommand(ctx))
	return productsCmd
}

func newProductsAddCommand(ctx *commandContext) *cobra.Command {
	var price float64
	var quantity int
	var update bool

	cmd := &cobra.Command{
		Use:   "add <barcode> <name>",
		Short: "Add a product, or update it with --update",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			product := catalog.Product{Barcode: args[0], Name: args[1], Price: price, Quantity: quantity}
			existing, err := store.GetByBarcode(cmd.Context(), product.Barcode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if existing != nil {
				if !update {
					return fmt.Errorf("%w: %s (use --update to change it)", catalog.ErrDuplicateBarcode, existing.Barcode)
				}
				existing.Name = product.Name
				if cmd.Flags().Changed("price") {
					existing.Price = price
				}
				if cmd.Flags().Changed("quantity") {
					existing.Quantity = quantity
				}
				if err := store.Update(cmd.Context(), existing); err != nil {
					return err
				}
				fmt.Fprintf(out, "Updated %s: %s\n", existing.Barcode, existing.Name)
				return nil
			}

			added, err := store.Add(cmd.Context(), product)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Added %s: %s\n", added.Barcode, added.Name)
			return nil
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "Unit price")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "Stock quantity")
	cmd.Flags().BoolVar(&update, "update", false, "Update the product if the barcode exists")
	return cmd
}

func newProductsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			products, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				dtos := make([]api.Product, 0, len(products))
				for _, product := range products {
					dtos = append(dtos, api.FromProduct(product))
				}
				return writeJSON(cmd, dtos)
			}

			out := cmd.OutOrStdout()
			if len(products) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			rows := make([][]string, 0, len(products))
			var units int
			var value float64
			for _, product := range products {
				rows = append(rows, []string{
					product.Barcode,
					product.Name,
					formatPrice(product.Price),
					strconv.Itoa(product.Quantity),
				})
				units += product.Quantity
				value += product.Price * float64(product.Quantity)
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				Headers: []string{"Barcode", "Name", "Price", "Qty"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				Footer:  []string{fmt.Sprintf("%d products", len(products)), "", formatPrice(value), strconv.Itoa(units)},
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print products as JSON")
	return cmd
}

func newProductsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <barcode>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			product, err := store.GetByBarcode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("no product with barcode %s", catalog.NormalizeBarcode(args[0]))
			}
			if jsonOut {
				return writeJSON(cmd, api.FromProduct(product))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Barcode:  %s\n", product.Barcode)
			fmt.Fprintf(out, "Name:     %s\n", product.Name)
			fmt.Fprintf(out, "Price:    %s\n", formatPrice(product.Price))
			fmt.Fprintf(out, "Quantity: %d\n", product.Quantity)
			fmt.Fprintf(out, "In stock: %s\n", yesNo(product.Quantity > 0))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the product as JSON")
	return cmd
}

func newProductsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <barcode>",
		Aliases: []string{"rm"},
		Short:   "Remove a product",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			barcode := catalog.NormalizeBarcode(args[0])
			if err := store.RemoveByBarcode(cmd.Context(), barcode); err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("no product with barcode %s", barcode)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", barcode)
			return nil
		},
	}
}

func formatPrice(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
