// Package model defines the core data types for the card price extractor.
// Struct tags map fields to the YGOProDeck JSON payloads, the SQLite columns
// (`db:"..."`) and our own API responses.
package model

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Card is one record returned by the card lookup API.
type Card struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Desc      string      `json:"desc"`
	Atk       *int        `json:"atk,omitempty"`
	Def       *int        `json:"def,omitempty"`
	Level     *int        `json:"level,omitempty"`
	Race      string      `json:"race"`
	Attribute string      `json:"attribute,omitempty"`
	Archetype string      `json:"archetype,omitempty"`
	Sets      []CardSet   `json:"card_sets,omitempty"`
	Images    []CardImage `json:"card_images"`
	Prices    []CardPrice `json:"card_prices"`
}

// CardPrice holds the marketplace prices. The API sends them as strings.
type CardPrice struct {
	Cardmarket   string `json:"cardmarket_price"`
	TCGPlayer    string `json:"tcgplayer_price"`
	EBay         string `json:"ebay_price"`
	Amazon       string `json:"amazon_price"`
	CoolStuffInc string `json:"coolstuffinc_price"`
}

// CardSet is a printing of the card in a particular set.
type CardSet struct {
	Name       string `json:"set_name"`
	Code       string `json:"set_code"`
	Rarity     string `json:"set_rarity"`
	RarityCode string `json:"set_rarity_code"`
	Price      string `json:"set_price"`
}

// CardImage points at the artwork hosted by the API.
type CardImage struct {
	ID         int64  `json:"id"`
	URL        string `json:"image_url"`
	URLSmall   string `json:"image_url_small"`
	URLCropped string `json:"image_url_cropped,omitempty"`
}

// CardSetInfo is an entry of the set catalogue (cardsets.php).
type CardSetInfo struct {
	Name       string `json:"set_name"`
	Code       string `json:"set_code"`
	NumOfCards int    `json:"num_of_cards"`
	TCGDate    string `json:"tcg_date,omitempty"`
	SetImage   string `json:"set_image,omitempty"`
}

// Marketplace names a price source.
type Marketplace string

const (
	MarketTCGPlayer    Marketplace = "tcgplayer"
	MarketCardmarket   Marketplace = "cardmarket"
	MarketEBay         Marketplace = "ebay"
	MarketAmazon       Marketplace = "amazon"
	MarketCoolStuffInc Marketplace = "coolstuffinc"
)

// Quote is a single formatted marketplace price.
type Quote struct {
	Market    Marketplace `json:"market"`
	Raw       string      `json:"raw"`
	Formatted string      `json:"formatted"`
}

// DefaultPrice is reported when the primary marketplace has no price.
const DefaultPrice = "0.00"

// PrimaryPrice returns the TCGPlayer price of the first price entry, or
// DefaultPrice when it is missing.
func (c *Card) PrimaryPrice() string {
	if len(c.Prices) == 0 {
		return DefaultPrice
	}
	if p := strings.TrimSpace(c.Prices[0].TCGPlayer); p != "" {
		return p
	}
	return DefaultPrice
}

// Quotes lists the display prices in the order the marketplaces are shown.
func (c *Card) Quotes() []Quote {
	var p CardPrice
	if len(c.Prices) > 0 {
		p = c.Prices[0]
	}
	raw := []struct {
		market Marketplace
		value  string
	}{
		{MarketTCGPlayer, p.TCGPlayer},
		{MarketCardmarket, p.Cardmarket},
		{MarketEBay, p.EBay},
		{MarketAmazon, p.Amazon},
		{MarketCoolStuffInc, p.CoolStuffInc},
	}

	quotes := make([]Quote, 0, len(raw))
	for _, r := range raw {
		quotes = append(quotes, Quote{Market: r.market, Raw: r.value, Formatted: FormatPrice(r.value)})
	}
	return quotes
}

// TopSets returns at most n sets and how many were left out.
func (c *Card) TopSets(n int) ([]CardSet, int) {
	if n < 0 || len(c.Sets) <= n {
		return c.Sets, 0
	}
	return c.Sets[:n], len(c.Sets) - n
}

// ImageURL returns the full-size artwork URL, or "" when the card has none.
func (c *Card) ImageURL() string {
	if len(c.Images) == 0 {
		return ""
	}
	return c.Images[0].URL
}

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a raw price string as US dollars ("$4.99").
// Unparsable input yields "N/A".
func FormatPrice(raw string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return usd.Sprintf("$%.2f", v)
}
