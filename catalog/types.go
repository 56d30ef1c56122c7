package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Amount is a decimal price. The backend sends decimals as strings; numbers
// are accepted too.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// Float parses the amount, zero when empty or malformed
func (a Amount) Float() float64 {
	f, err := strconv.ParseFloat(string(a), 64)
	if err != nil {
		return 0
	}
	return f
}

type Auction struct {
	ID            int    `json:"id"`
	Title         string `json:"titulo"`
	Description   string `json:"descripcion,omitempty"`
	StartingPrice Amount `json:"precio_inicial,omitempty"`
	CurrentPrice  Amount `json:"precio_actual,omitempty"`
	ClosingDate   string `json:"fecha_cierre,omitempty"`
	CreatedAt     string `json:"fecha_registro,omitempty"`
	Category      int    `json:"categoria,omitempty"`
	OwnerID       int    `json:"usuario,omitempty"`
	OwnerName     string `json:"usuario_nombre,omitempty"`
	Image         string `json:"imagen,omitempty"`
	Status        string `json:"estado_actual,omitempty"`
	BidCount      int    `json:"num_pujas,omitempty"`
}

// AuctionInput is the body of create and update calls. Update sends only the
// non-nil fields.
type AuctionInput struct {
	Title         *string  `json:"titulo,omitempty"`
	Description   *string  `json:"descripcion,omitempty"`
	StartingPrice *float64 `json:"precio_inicial,omitempty"`
	ClosingDate   *string  `json:"fecha_cierre,omitempty"`
	Category      *int     `json:"categoria,omitempty"`
	Image         *string  `json:"imagen,omitempty"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"nombre"`
}

type Bid struct {
	ID         int    `json:"id"`
	AuctionID  int    `json:"subasta"`
	BidderID   int    `json:"pujador"`
	BidderName string `json:"pujador_nombre,omitempty"`
	Amount     Amount `json:"cantidad"`
	PlacedAt   string `json:"fecha_puja,omitempty"`
}

type Comment struct {
	ID        int    `json:"id"`
	AuctionID int    `json:"subasta"`
	UserID    int    `json:"usuario"`
	UserName  string `json:"usuario_nombre,omitempty"`
	Title     string `json:"titulo"`
	Text      string `json:"texto"`
	CreatedAt string `json:"fecha_creacion,omitempty"`
}

type CommentInput struct {
	Title string `json:"titulo"`
	Text  string `json:"texto"`
}

type Rating struct {
	ID        int `json:"id"`
	AuctionID int `json:"subasta"`
	UserID    int `json:"usuario"`
	Value     int `json:"valor"`
}
