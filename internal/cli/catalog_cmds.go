package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jrsteele09/auction-storefront/catalog"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/routes"
	"github.com/spf13/cobra"
)

func newAuctionsCommand(app *App, p printer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auctions",
		Short: "Browse and manage auctions",
	}

	var (
		filters  routes.AuctionFilters
		minPrice float64
		maxPrice float64
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List open auctions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min") {
				filters.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max") {
				filters.MaxPrice = &maxPrice
			}
			auctions, err := app.Catalog.ListAuctions(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return p.print(auctions, func(w io.Writer) { printAuctions(w, auctions) })
		},
	}
	list.Flags().StringVar(&filters.Search, "search", "", "Text to search for")
	list.Flags().StringVar(&filters.Category, "category", "", "Category id")
	list.Flags().Float64Var(&minPrice, "min", 0, "Minimum current price")
	list.Flags().Float64Var(&maxPrice, "max", 0, "Maximum current price")

	show := &cobra.Command{
		Use:   "show AUCTION_ID",
		Short: "Show one auction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			auction, err := app.Catalog.GetAuction(cmd.Context(), id)
			if err != nil {
				return err
			}
			return p.print(auction, func(w io.Writer) {
				fmt.Fprintf(w, "#%d %s\n", auction.ID, auction.Title)
				fmt.Fprintf(w, "Current price: %s\n", auction.CurrentPrice)
				fmt.Fprintf(w, "Closes:        %s\n", auction.ClosingDate)
				if auction.Description != "" {
					fmt.Fprintf(w, "\n%s\n", auction.Description)
				}
			})
		},
	}

	mine := &cobra.Command{
		Use:   "mine",
		Short: "List your auctions",
		RunE: func(cmd *cobra.Command, args []string) error {
			auctions, err := app.Catalog.MyAuctions(cmd.Context())
			if err != nil {
				return err
			}
			return p.print(auctions, func(w io.Writer) { printAuctions(w, auctions) })
		},
	}

	remove := &cobra.Command{
		Use:   "delete AUCTION_ID",
		Short: "Delete one of your auctions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Catalog.DeleteAuction(cmd.Context(), id); err != nil {
				return err
			}
			return p.print(map[string]int{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Auction %d deleted\n", id)
			})
		},
	}

	cmd.AddCommand(list, show, mine, remove)
	return cmd
}

func newBidsCommand(app *App, p printer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bids",
		Short: "Place and review bids",
	}

	mine := &cobra.Command{
		Use:   "mine",
		Short: "List your bids",
		RunE: func(cmd *cobra.Command, args []string) error {
			bids, err := app.Catalog.MyBids(cmd.Context())
			if err != nil {
				return err
			}
			return p.print(bids, func(w io.Writer) {
				if len(bids) == 0 {
					fmt.Fprintln(w, "No bids")
				}
				for _, b := range bids {
					fmt.Fprintf(w, "#%d auction %d: %s\n", b.ID, b.AuctionID, b.Amount)
				}
			})
		},
	}

	place := &cobra.Command{
		Use:   "place AUCTION_ID AMOUNT",
		Short: "Bid on an auction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				return errors.Wrapf(errors.ErrValidation, "invalid amount %q", args[1])
			}
			bid, err := app.Catalog.PlaceBid(cmd.Context(), id, amount)
			if err != nil {
				return err
			}
			return p.print(bid, func(w io.Writer) {
				fmt.Fprintf(w, "Bid #%d of %s placed on auction %d\n", bid.ID, bid.Amount, bid.AuctionID)
			})
		},
	}

	cmd.AddCommand(mine, place)
	return cmd
}

func printAuctions(w io.Writer, auctions []catalog.Auction) {
	if len(auctions) == 0 {
		fmt.Fprintln(w, "No auctions")
		return
	}
	for _, a := range auctions {
		fmt.Fprintf(w, "#%-4d %-40s %10s\n", a.ID, a.Title, a.CurrentPrice)
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errors.ErrValidation, "invalid id %q", s)
	}
	return id, nil
}
