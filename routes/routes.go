package routes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/auction-storefront/internal/utils"
)

// API path constants, relative to the configured base URL
const (
	PathLogin          = "token/"
	PathRefreshToken   = "token/refresh/"
	PathLogout         = "usuarios/log-out/"
	PathUserProfile    = "usuarios/profile/"
	PathChangePassword = "usuarios/change-password/"

	PathAuctions          = "subastas/"
	PathAuctionCategories = "subastas/categorias/"
	PathMyAuctions        = "misSubastas/"
	PathMyBids            = "misPujas/"
)

// Routes builds absolute endpoint URLs from a base URL. Registration lives on
// a separate origin and is carried verbatim.
type Routes struct {
	baseURL     string
	registerURL string
}

func New(baseURL, registerURL string) Routes {
	return Routes{
		baseURL:     strings.TrimRight(baseURL, "/"),
		registerURL: registerURL,
	}
}

// APIURL joins path onto the base URL, ignoring a leading slash on path
func (r Routes) APIURL(path string) string {
	return r.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func (r Routes) BaseURL() string {
	return r.baseURL
}

func (r Routes) Login() string          { return r.APIURL(PathLogin) }
func (r Routes) RefreshToken() string   { return r.APIURL(PathRefreshToken) }
func (r Routes) Logout() string         { return r.APIURL(PathLogout) }
func (r Routes) UserProfile() string    { return r.APIURL(PathUserProfile) }
func (r Routes) ChangePassword() string { return r.APIURL(PathChangePassword) }
func (r Routes) Register() string       { return r.registerURL }

func (r Routes) Auctions() string          { return r.APIURL(PathAuctions) }
func (r Routes) AuctionCategories() string { return r.APIURL(PathAuctionCategories) }
func (r Routes) MyAuctions() string        { return r.APIURL(PathMyAuctions) }
func (r Routes) MyBids() string            { return r.APIURL(PathMyBids) }

func (r Routes) AuctionByID(id int) string {
	return r.APIURL(fmt.Sprintf("subastas/%d/", id))
}

func (r Routes) AuctionBids(auctionID int) string {
	return r.APIURL(fmt.Sprintf("subastas/%d/pujas/", auctionID))
}

func (r Routes) BidByID(auctionID, bidID int) string {
	return r.APIURL(fmt.Sprintf("subastas/%d/pujas/%d/", auctionID, bidID))
}

func (r Routes) AuctionComments(auctionID int) string {
	return r.APIURL(fmt.Sprintf("subastas/%d/comentarios/", auctionID))
}

func (r Routes) CommentByID(auctionID, commentID int) string {
	return r.APIURL(fmt.Sprintf("subastas/%d/comentarios/%d/", auctionID, commentID))
}

func (r Routes) AuctionRatings(auctionID int) string {
	return r.APIURL(fmt.Sprintf("subastas/%d/ratings/", auctionID))
}

func (r Routes) RatingByID(auctionID, ratingID int) string {
	return r.APIURL(fmt.Sprintf("subastas/%d/ratings/%d/", auctionID, ratingID))
}

// AuctionFilters are the listing query parameters understood by the backend
type AuctionFilters struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
}

// AuctionsWithFilters returns the auction listing URL. Negative price bounds are dropped.
func (r Routes) AuctionsWithFilters(f AuctionFilters) string {
	q := url.Values{}
	if f.Category != "" {
		q.Set("categoria", f.Category)
	}
	if minPrice := utils.ValueOr(f.MinPrice, -1); minPrice >= 0 {
		q.Set("precio_min", strconv.FormatFloat(minPrice, 'f', -1, 64))
	}
	if maxPrice := utils.ValueOr(f.MaxPrice, -1); maxPrice >= 0 {
		q.Set("precio_max", strconv.FormatFloat(maxPrice, 'f', -1, 64))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if len(q) == 0 {
		return r.Auctions()
	}
	return r.Auctions() + "?" + q.Encode()
}
