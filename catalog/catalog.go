package catalog

import (
	"context"
	"net/http"

	"github.com/jrsteele09/auction-storefront/authclient"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/jrsteele09/auction-storefront/routes"
	"github.com/rs/zerolog"
)

// Catalog is a typed view of the auction, bid, comment and rating endpoints.
// Browsing is public; everything else goes through the authenticated client.
type Catalog struct {
	client *authclient.Client
	routes routes.Routes
	logger zerolog.Logger
}

// Option defines a function type to modify the Catalog instance.
type Option func(*Catalog)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Catalog) {
		c.logger = l
	}
}

func New(client *authclient.Client, r routes.Routes, options ...Option) *Catalog {
	c := &Catalog{client: client, routes: r, logger: zerolog.Nop()}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Catalog) ListAuctions(ctx context.Context, filters routes.AuctionFilters) ([]Auction, error) {
	o := c.client.PublicRequest(ctx, c.routes.AuctionsWithFilters(filters), authclient.RequestOptions{Method: http.MethodGet})
	return decodeList[Auction](c, o, "[ListAuctions]")
}

func (c *Catalog) GetAuction(ctx context.Context, id int) (Auction, error) {
	o := c.client.PublicRequest(ctx, c.routes.AuctionByID(id), authclient.RequestOptions{Method: http.MethodGet})
	return decodeOne[Auction](o, "[GetAuction]")
}

func (c *Catalog) ListCategories(ctx context.Context) ([]Category, error) {
	o := c.client.PublicRequest(ctx, c.routes.AuctionCategories(), authclient.RequestOptions{Method: http.MethodGet})
	return decodeList[Category](c, o, "[ListCategories]")
}

// MyAuctions lists the auctions owned by the logged in user
func (c *Catalog) MyAuctions(ctx context.Context) ([]Auction, error) {
	return decodeList[Auction](c, c.client.Get(ctx, c.routes.MyAuctions()), "[MyAuctions]")
}

func (c *Catalog) CreateAuction(ctx context.Context, in AuctionInput) (Auction, error) {
	return decodeOne[Auction](c.client.Post(ctx, c.routes.Auctions(), in), "[CreateAuction]")
}

func (c *Catalog) UpdateAuction(ctx context.Context, id int, in AuctionInput) (Auction, error) {
	return decodeOne[Auction](c.client.Patch(ctx, c.routes.AuctionByID(id), in), "[UpdateAuction]")
}

func (c *Catalog) DeleteAuction(ctx context.Context, id int) error {
	return errors.Wrapf(c.client.Delete(ctx, c.routes.AuctionByID(id)).Err(), "[DeleteAuction]")
}

// MyBids lists the bids placed by the logged in user
func (c *Catalog) MyBids(ctx context.Context) ([]Bid, error) {
	return decodeList[Bid](c, c.client.Get(ctx, c.routes.MyBids()), "[MyBids]")
}

func (c *Catalog) PlaceBid(ctx context.Context, auctionID int, amount float64) (Bid, error) {
	o := c.client.Post(ctx, c.routes.AuctionBids(auctionID), bidRequest{Amount: amount})
	return decodeOne[Bid](o, "[PlaceBid]")
}

func (c *Catalog) UpdateBid(ctx context.Context, auctionID, bidID int, amount float64) (Bid, error) {
	o := c.client.Patch(ctx, c.routes.BidByID(auctionID, bidID), bidRequest{Amount: amount})
	return decodeOne[Bid](o, "[UpdateBid]")
}

func (c *Catalog) DeleteBid(ctx context.Context, auctionID, bidID int) error {
	return errors.Wrapf(c.client.Delete(ctx, c.routes.BidByID(auctionID, bidID)).Err(), "[DeleteBid]")
}

func (c *Catalog) ListComments(ctx context.Context, auctionID int) ([]Comment, error) {
	o := c.client.PublicRequest(ctx, c.routes.AuctionComments(auctionID), authclient.RequestOptions{Method: http.MethodGet})
	return decodeList[Comment](c, o, "[ListComments]")
}

func (c *Catalog) AddComment(ctx context.Context, auctionID int, in CommentInput) (Comment, error) {
	return decodeOne[Comment](c.client.Post(ctx, c.routes.AuctionComments(auctionID), in), "[AddComment]")
}

func (c *Catalog) UpdateComment(ctx context.Context, auctionID, commentID int, in CommentInput) (Comment, error) {
	return decodeOne[Comment](c.client.Put(ctx, c.routes.CommentByID(auctionID, commentID), in), "[UpdateComment]")
}

func (c *Catalog) DeleteComment(ctx context.Context, auctionID, commentID int) error {
	return errors.Wrapf(c.client.Delete(ctx, c.routes.CommentByID(auctionID, commentID)).Err(), "[DeleteComment]")
}

// Rate creates the user's rating of an auction
func (c *Catalog) Rate(ctx context.Context, auctionID, value int) (Rating, error) {
	return decodeOne[Rating](c.client.Post(ctx, c.routes.AuctionRatings(auctionID), ratingRequest{Value: value}), "[Rate]")
}

func (c *Catalog) UpdateRating(ctx context.Context, auctionID, ratingID, value int) (Rating, error) {
	o := c.client.Put(ctx, c.routes.RatingByID(auctionID, ratingID), ratingRequest{Value: value})
	return decodeOne[Rating](o, "[UpdateRating]")
}

type bidRequest struct {
	Amount float64 `json:"cantidad"`
}

type ratingRequest struct {
	Value int `json:"valor"`
}

func decodeOne[T any](o outcome.Outcome, op string) (T, error) {
	var v T
	if !o.OK() {
		return v, errors.Wrapf(o.Err(), "%s", op)
	}
	if err := o.Decode(&v); err != nil {
		return v, errors.Wrapf(err, "%s", op)
	}
	return v, nil
}

func decodeList[T any](c *Catalog, o outcome.Outcome, op string) ([]T, error) {
	items, err := outcome.DecodeList[T](o)
	if err != nil {
		if errors.Is(err, errors.ErrUnrecognizedShape) {
			c.logger.Warn().Err(err).Str("op", op).Object("outcome", o).Msg("Unrecognized list response")
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	return items, nil
}
