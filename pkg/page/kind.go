// Package page recognises which screen of the shopping app is displayed.
package page

// Kind is a recognisable screen of the app.
type Kind int

const (
	Unknown Kind = iota
	Home
	ProductList
	ProductDetail
	SpecificationPopup
	PersonalCenter
	PendingPayment
	PendingDelivery
	FavoriteList
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	Home:               "home",
	ProductList:        "product-list",
	ProductDetail:      "product-detail",
	SpecificationPopup: "specification-popup",
	PersonalCenter:     "personal-center",
	PendingPayment:     "pending-payment",
	PendingDelivery:    "pending-delivery",
	FavoriteList:       "favorite-list",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind is the inverse of String. Unrecognised names give Unknown.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return Unknown
}
