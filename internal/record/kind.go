package record

import (
	"fmt"
	"sort"
	"strings"
)

// Actions names the remote store actions for one record kind.
type Actions struct {
	List   string `toml:"list"`
	Create string `toml:"create"`
	Update string `toml:"update"`
	Delete string `toml:"delete"`
}

// Column is one displayed field in tables and print layouts.
type Column struct {
	Field string
	Label string
}

// Kind describes one record type served by the remote store: which actions
// to call, which fields to search, require and display.
type Kind struct {
	Name          string
	Noun          string // singular, used in messages
	Actions       Actions
	Fields        []string // editable fields, in form order
	SearchFields  []string // matched by the list filter; "id" means the record id
	Required      []string
	Columns       []Column
	TitleFields   []string // joined with a space to form the record title
	DefaultLayout string   // print layout used when none is requested
	DateField     string   // field holding the scheduled date, if any
}

// Athletes is the athlete registration kind.
var Athletes = Kind{
	Name: "athletes",
	Noun: "athlete",
	Actions: Actions{
		List:   "getAthletes",
		Create: "registerAthlete",
		Update: "updateAthlete",
		Delete: "deleteAthlete",
	},
	Fields:       []string{"firstName", "lastName", "level", "number", "photoUrl"},
	SearchFields: []string{"firstName", "lastName", "number", "id"},
	Required:     []string{"firstName", "lastName", "level", "number", "photoUrl"},
	Columns: []Column{
		{Field: "number", Label: "No."},
		{Field: "firstName", Label: "First name"},
		{Field: "lastName", Label: "Last name"},
		{Field: "level", Label: "Level"},
	},
	TitleFields:   []string{"firstName", "lastName"},
	DefaultLayout: "athlete-roster",
}

// Orders is the flower-delivery order kind.
var Orders = Kind{
	Name: "orders",
	Noun: "order",
	Actions: Actions{
		List:   "getOrders",
		Create: "createOrder",
		Update: "updateOrder",
		Delete: "deleteOrder",
	},
	Fields:       []string{"recipientName", "phone", "details", "cardMessage", "address", "deliveryTime", "photoUrl"},
	SearchFields: []string{"recipientName", "id", "phone"},
	Required:     []string{"recipientName", "phone", "details", "address", "deliveryTime", "photoUrl"},
	Columns: []Column{
		{Field: "recipientName", Label: "Recipient"},
		{Field: "phone", Label: "Phone"},
		{Field: "deliveryTime", Label: "Delivery"},
		{Field: "details", Label: "Details"},
	},
	TitleFields:   []string{"recipientName"},
	DefaultLayout: "order-receipt",
	DateField:     "deliveryTime",
}

var kinds = map[string]Kind{
	Athletes.Name: Athletes,
	Orders.Name:   Orders,
}

// LookupKind returns the built-in kind with the given name.
func LookupKind(name string) (Kind, error) {
	k, ok := kinds[name]
	if !ok {
		names := make([]string, 0, len(kinds))
		for n := range kinds {
			names = append(names, n)
		}
		sort.Strings(names)
		return Kind{}, fmt.Errorf("unknown record kind %q (want one of %s)", name, strings.Join(names, ", "))
	}
	return k, nil
}

// WithActions returns a copy of k with the non-empty actions of a applied.
func (k Kind) WithActions(a Actions) Kind {
	if a.List != "" {
		k.Actions.List = a.List
	}
	if a.Create != "" {
		k.Actions.Create = a.Create
	}
	if a.Update != "" {
		k.Actions.Update = a.Update
	}
	if a.Delete != "" {
		k.Actions.Delete = a.Delete
	}
	return k
}

// Title returns the human readable name of a record, e.g. "Alice Smith".
func (k Kind) Title(r Record) string {
	parts := make([]string, 0, len(k.TitleFields))
	for _, f := range k.TitleFields {
		if v := strings.TrimSpace(r.Get(f)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return r.ID
	}
	return strings.Join(parts, " ")
}

// SearchValue returns the value of a search field, resolving "id" to the
// record identifier.
func (k Kind) SearchValue(r Record, field string) string {
	if field == "id" {
		return r.ID
	}
	return r.Get(field)
}

// HasField reports whether name is an editable field of the kind.
func (k Kind) HasField(name string) bool {
	for _, f := range k.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Validate checks the required fields of a create or full update. Blank
// strings count as missing. An inline photo larger than MaxPhotoBytes is
// rejected as well.
func (k Kind) Validate(f Fields) error {
	var missing []string
	for _, name := range k.Required {
		if strings.TrimSpace(f.String(name)) == "" {
			missing = append(missing, name)
		}
	}
	var reason string
	if n := dataURISize(f.String("photoUrl")); n > MaxPhotoBytes {
		reason = fmt.Sprintf("photo is %d bytes, limit is %d", n, MaxPhotoBytes)
	}
	if len(missing) > 0 || reason != "" {
		return &ValidationError{Missing: missing, Reason: reason}
	}
	return nil
}

// ValidatePatch checks a partial update: required fields present in the
// patch must not be blank. Fields the patch leaves out are not checked.
func (k Kind) ValidatePatch(patch Fields) error {
	var missing []string
	for _, name := range k.Required {
		if _, ok := patch[name]; ok && strings.TrimSpace(patch.String(name)) == "" {
			missing = append(missing, name)
		}
	}
	var reason string
	if n := dataURISize(patch.String("photoUrl")); n > MaxPhotoBytes {
		reason = fmt.Sprintf("photo is %d bytes, limit is %d", n, MaxPhotoBytes)
	}
	if len(missing) > 0 || reason != "" {
		return &ValidationError{Missing: missing, Reason: reason}
	}
	return nil
}
