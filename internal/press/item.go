package press

// Item is the validated, typed form of an included record. Items live only
// long enough to be serialized into the publication context.
type Item struct {
	Title     string
	Domain    string
	Summary   string
	Customer  string
	Type      Category
	TicketURL string
}

// NewItem builds an Item, validating the category. Other fields are copied
// verbatim.
func NewItem(title, domain, summary, customer, itemType, ticketURL string) (Item, error) {
	category, err := ParseCategory(itemType)
	if err != nil {
		return Item{}, err
	}
	return Item{
		Title:     title,
		Domain:    domain,
		Summary:   summary,
		Customer:  customer,
		Type:      category,
		TicketURL: ticketURL,
	}, nil
}

// PublicationForm serializes the item as the plain mapping the validator
// and renderer consume. The category is rendered as its label string, and
// ticket_url is omitted entirely when there is no URL.
func (i Item) PublicationForm() map[string]any {
	form := map[string]any{
		"title":     i.Title,
		"domain":    i.Domain,
		"summary":   i.Summary,
		"customer":  i.Customer,
		"item_type": i.Type.String(),
	}
	if i.TicketURL != "" {
		form["ticket_url"] = i.TicketURL
	}
	return form
}
