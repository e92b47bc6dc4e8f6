// Package admin defines the marketplace entity pages and composes the list
// synchronisation controllers into a mounted Session per page.
package admin

import (
	"fmt"
	"strings"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/filter"
	"github.com/five82/marketdesk/internal/form"
	"github.com/five82/marketdesk/internal/query"
	"github.com/five82/marketdesk/internal/table"
)

// FormField describes one input of a page's create/edit form.
type FormField struct {
	Name    string
	Label   string
	Type    form.ValueType
	Options []string
}

// Page is one entity list in the console.
type Page struct {
	Name         string
	Resource     string
	Columns      []table.Column
	Filters      []filter.Field
	FormFields   []FormField
	FormTemplate form.Draft
	// FormRules are validator tags keyed by form field name.
	FormRules    map[string]any
	DefaultQuery query.Query
}

// Pages returns the console pages in navigation order.
func Pages() []Page {
	return []Page{buyersPage(), sellersPage(), productsPage(), reviewsPage(), rolesPage()}
}

// Lookup finds a page by name or resource path.
func Lookup(key string) (Page, bool) {
	for _, p := range Pages() {
		if strings.EqualFold(p.Name, key) || p.Resource == strings.Trim(key, "/") {
			return p, true
		}
	}
	return Page{}, false
}

var (
	userStatuses = []string{"ACTIVE", "BLOCKED", "PENDING_APPROVAL"}
	countries    = []string{"NO", "SE", "DK", "FI"}
)

func options(values ...string) []filter.Option {
	out := make([]filter.Option, len(values))
	for i, v := range values {
		out[i] = filter.Option{Value: v, Label: strings.ToLower(v)}
	}
	return out
}

func yesNo(key string) func(api.Record) string {
	return func(r api.Record) string {
		if r.String(key) == "true" {
			return "yes"
		}
		return "no"
	}
}

func money(key string) func(api.Record) string {
	return func(r api.Record) string {
		v, ok := r[key].(float64)
		if !ok {
			return r.String(key)
		}
		return fmt.Sprintf("%.2f", v)
	}
}

func editMarker(key string) func(api.Record) string {
	return func(r api.Record) string {
		return "> " + r.String(key)
	}
}

func buyersPage() Page {
	return Page{
		Name:     "Buyers",
		Resource: "admin/buyers",
		Columns: []table.Column{
			{ID: "id", Name: "ID", Visible: true, Width: 8},
			{ID: "name", Name: "Name", Visible: true, Sortable: table.SortBackend, Width: 20, EditRender: editMarker("name")},
			{ID: "email", Name: "Email", Visible: true, Sortable: table.SortBackend, Width: 22},
			{ID: "user_status", Name: "Status", Visible: true, Sortable: table.SortBackend, Width: 16},
			{ID: "verified", Name: "Verified", Visible: true, Width: 8, Render: yesNo("verified")},
			{ID: "country", Name: "Country", Visible: true, Width: 7},
			{ID: "orders", Name: "Orders", Visible: true, Sortable: table.SortBackend, Width: 6},
			{ID: "created_at", Name: "Created", Visible: true, Sortable: table.SortBackend, Width: 10},
		},
		Filters: []filter.Field{
			{Key: "user_status", Label: "Status", Type: filter.Select, Options: options(userStatuses...), LiveApply: true},
			{Key: "verified", Label: "Verified only", Type: filter.Checkbox, LiveApply: true},
			{Key: "country", Label: "Country", Type: filter.Select, Operator: filter.In, Options: options(countries...)},
			{Key: "email", Label: "Email contains", Type: filter.Text, Operator: filter.Contains},
			{Key: "created_at", Label: "Created", Type: filter.DateRange, Operator: filter.Range},
		},
		FormFields: []FormField{
			{Name: "name", Label: "Name"},
			{Name: "email", Label: "Email"},
			{Name: "user_status", Label: "Status", Options: userStatuses},
			{Name: "country", Label: "Country", Options: countries},
			{Name: "verified", Label: "Verified", Type: form.Bool},
		},
		FormTemplate: form.Draft{"name": "", "email": "", "user_status": "PENDING_APPROVAL", "country": "", "verified": false},
		FormRules: map[string]any{
			"name":        "required,trimmed,min=2,max=80",
			"email":       "required,email",
			"user_status": "required,oneof=ACTIVE BLOCKED PENDING_APPROVAL",
			"country":     "omitempty,oneof=NO SE DK FI",
		},
		DefaultQuery: query.Of(query.KeySort, "created_at:desc"),
	}
}

func sellersPage() Page {
	return Page{
		Name:     "Sellers",
		Resource: "admin/sellers",
		Columns: []table.Column{
			{ID: "id", Name: "ID", Visible: true, Width: 8},
			{ID: "name", Name: "Name", Visible: true, Sortable: table.SortBackend, Width: 16, EditRender: editMarker("name")},
			{ID: "store_name", Name: "Store", Visible: true, Sortable: table.SortBackend, Width: 18},
			{ID: "email", Name: "Email", Visible: false, Width: 20},
			{ID: "user_status", Name: "Status", Visible: true, Sortable: table.SortBackend, Width: 16},
			{ID: "rating", Name: "Rating", Visible: true, Sortable: table.SortBackend, Width: 6},
			{ID: "created_at", Name: "Created", Visible: true, Sortable: table.SortBackend, Width: 10},
		},
		Filters: []filter.Field{
			{Key: "user_status", Label: "Status", Type: filter.Select, Options: options(userStatuses...), LiveApply: true},
			{Key: "store_name", Label: "Store contains", Type: filter.Text, Operator: filter.Contains},
			{Key: "created_at", Label: "Created", Type: filter.DateRange, Operator: filter.Range},
		},
		FormFields: []FormField{
			{Name: "name", Label: "Name"},
			{Name: "email", Label: "Email"},
			{Name: "store_name", Label: "Store"},
			{Name: "user_status", Label: "Status", Options: userStatuses},
		},
		FormTemplate: form.Draft{"name": "", "email": "", "store_name": "", "user_status": "PENDING_APPROVAL"},
		FormRules: map[string]any{
			"name":        "required,trimmed,min=2,max=80",
			"email":       "required,email",
			"store_name":  "required,trimmed,max=60",
			"user_status": "required,oneof=ACTIVE BLOCKED PENDING_APPROVAL",
		},
	}
}

func productsPage() Page {
	statuses := []string{"ACTIVE", "DRAFT", "ARCHIVED"}
	categories := []string{"lighting", "kitchen", "textiles", "outdoor", "audio"}
	return Page{
		Name:     "Products",
		Resource: "admin/products",
		Columns: []table.Column{
			{ID: "id", Name: "ID", Visible: true, Width: 8},
			{ID: "name", Name: "Name", Visible: true, Sortable: table.SortBackend, Width: 20, EditRender: editMarker("name")},
			{ID: "category", Name: "Category", Visible: true, Sortable: table.SortBackend, Width: 9},
			{ID: "price", Name: "Price", Visible: true, Sortable: table.SortBackend, Width: 8, Render: money("price")},
			{ID: "stock", Name: "Stock", Visible: true, Sortable: table.SortBackend, Width: 6},
			{ID: "status", Name: "Status", Visible: true, Sortable: table.SortBackend, Width: 9},
			{ID: "tags", Name: "Tags", Visible: true, Width: 16},
			{ID: "seller_id", Name: "Seller", Visible: false, Width: 8},
			{ID: "created_at", Name: "Created", Visible: false, Sortable: table.SortBackend, Width: 10},
		},
		Filters: []filter.Field{
			{Key: "status", Label: "Status", Type: filter.Select, Operator: filter.In, Options: options(statuses...)},
			{Key: "category", Label: "Category", Type: filter.Select, Options: options(categories...), LiveApply: true},
			{Key: "tags", Label: "Tags", Type: filter.Text, Operator: filter.In},
			{Key: "name", Label: "Name contains", Type: filter.Text, Operator: filter.Contains},
			{Key: "created_at", Label: "Created", Type: filter.DateRange, Operator: filter.Range},
		},
		FormFields: []FormField{
			{Name: "name", Label: "Name"},
			{Name: "seller_id", Label: "Seller ID"},
			{Name: "category", Label: "Category", Options: categories},
			{Name: "price", Label: "Price", Type: form.Float},
			{Name: "stock", Label: "Stock", Type: form.Int},
			{Name: "status", Label: "Status", Options: statuses},
			{Name: "tags", Label: "Tags", Type: form.StringList},
		},
		FormTemplate: form.Draft{"name": "", "seller_id": "", "category": "", "price": nil, "stock": nil, "status": "DRAFT", "tags": []string{}},
		FormRules: map[string]any{
			"name":      "required,trimmed,min=2,max=80",
			"seller_id": "required",
			"category":  "required,oneof=lighting kitchen textiles outdoor audio",
			"price":     "required,gt=0",
			"stock":     "omitempty,min=0",
			"status":    "required,oneof=ACTIVE DRAFT ARCHIVED",
			"tags":      "omitempty,max=10",
		},
		DefaultQuery: query.Of(query.KeySort, "name:asc"),
	}
}

func reviewsPage() Page {
	statuses := []string{"PUBLISHED", "HIDDEN", "FLAGGED"}
	return Page{
		Name:     "Reviews",
		Resource: "admin/reviews",
		Columns: []table.Column{
			{ID: "id", Name: "ID", Visible: true, Width: 8},
			{ID: "product_id", Name: "Product", Visible: true, Width: 8},
			{ID: "buyer_id", Name: "Buyer", Visible: true, Width: 8},
			{ID: "rating", Name: "Rating", Visible: true, Sortable: table.SortBackend, Width: 6},
			{ID: "title", Name: "Title", Visible: true, Width: 24, EditRender: editMarker("title")},
			{ID: "status", Name: "Status", Visible: true, Sortable: table.SortBackend, Width: 10},
			{ID: "created_at", Name: "Created", Visible: true, Sortable: table.SortBackend, Width: 10},
		},
		Filters: []filter.Field{
			{Key: "status", Label: "Status", Type: filter.Select, Options: options(statuses...), LiveApply: true},
			{Key: "rating", Label: "Rating", Type: filter.Select, Options: options("1", "2", "3", "4", "5")},
			{Key: "created_at", Label: "Created", Type: filter.DateRange, Operator: filter.Range},
		},
		FormFields: []FormField{
			{Name: "product_id", Label: "Product ID"},
			{Name: "buyer_id", Label: "Buyer ID"},
			{Name: "rating", Label: "Rating", Type: form.Int},
			{Name: "title", Label: "Title"},
			{Name: "status", Label: "Status", Options: statuses},
		},
		FormTemplate: form.Draft{"product_id": "", "buyer_id": "", "rating": nil, "title": "", "status": "PUBLISHED"},
		FormRules: map[string]any{
			"product_id": "required",
			"buyer_id":   "required",
			"rating":     "required,min=1,max=5",
			"title":      "required,trimmed,max=120",
			"status":     "required,oneof=PUBLISHED HIDDEN FLAGGED",
		},
		DefaultQuery: query.Of(query.KeySort, "created_at:desc"),
	}
}

func rolesPage() Page {
	return Page{
		Name:     "Roles",
		Resource: "admin/roles",
		Columns: []table.Column{
			{ID: "id", Name: "ID", Visible: true, Width: 8},
			{ID: "name", Name: "Name", Visible: true, Sortable: table.SortBackend, Width: 12, EditRender: editMarker("name")},
			{ID: "description", Name: "Description", Visible: true, Width: 24},
			{ID: "permissions", Name: "Permissions", Visible: true, Width: 30},
			{ID: "system", Name: "System", Visible: true, Width: 6, Render: yesNo("system")},
		},
		Filters: []filter.Field{
			{Key: "system", Label: "System roles", Type: filter.Checkbox, LiveApply: true},
			{Key: "permissions", Label: "Has permission", Type: filter.Text, Operator: filter.In},
		},
		FormFields: []FormField{
			{Name: "name", Label: "Name"},
			{Name: "description", Label: "Description"},
			{Name: "permissions", Label: "Permissions", Type: form.StringList},
		},
		FormTemplate: form.Draft{"name": "", "description": "", "permissions": []string{}},
		FormRules: map[string]any{
			"name":        "required,trimmed,min=3,max=32",
			"description": "omitempty,max=200",
			"permissions": "required,min=1",
		},
	}
}
