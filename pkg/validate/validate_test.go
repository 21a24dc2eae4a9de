package validate_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/plantnet/plantnet-server/pkg/validate"
)

type listingInput struct {
	Name     string          `json:"name"     validate:"required,min=2,max=80"`
	Category string          `json:"category" validate:"required"`
	Price    decimal.Decimal `json:"price"    validate:"required,gt=0"`
	Quantity int             `json:"quantity" validate:"gte=0"`
	Image    string          `json:"image"    validate:"nullable,url"`
	Email    string          `json:"email"    validate:"required,email"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(listingInput{
		Name:     "Monstera",
		Category: "Indoor",
		Price:    decimal.RequireFromString("24.50"),
		Quantity: 3,
		Email:    "seller@plants.example",
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(listingInput{})
	if !validate.HasErrors(errs) {
		t.Fatal("expected required errors")
	}
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "price", "zero decimal counts as empty")
	assert.Contains(t, errs, "email")
}

func TestDecimalBounds(t *testing.T) {
	errs := validate.Struct(listingInput{
		Name:     "Fern",
		Category: "Outdoor",
		Price:    decimal.RequireFromString("-1"),
		Email:    "a@b.co",
	})
	assert.Equal(t, "The price must be greater than 0.", errs["price"])
}

func TestNullableSkipsEmpty(t *testing.T) {
	in := listingInput{Name: "Fern", Category: "Outdoor", Price: decimal.NewFromInt(1), Email: "a@b.co"}
	assert.Empty(t, validate.Struct(in))

	in.Image = "not a url"
	assert.Contains(t, validate.Struct(in), "image")
}

func TestInRuleWithSpaces(t *testing.T) {
	type in struct {
		Status string `json:"status" validate:"required,in=Pending,In Progress,Delivered"`
	}
	if errs := validate.Struct(in{Status: "In Progress"}); validate.HasErrors(errs) {
		t.Errorf("expected In Progress to pass, got: %v", errs)
	}
	if errs := validate.Struct(in{Status: "Shipped"}); !validate.HasErrors(errs) {
		t.Error("expected Shipped to fail")
	}
}

func TestObjectIDRule(t *testing.T) {
	type in struct {
		ID string `json:"id" validate:"required,objectid"`
	}
	assert.Empty(t, validate.Struct(in{ID: "65f1c0ffee0000000000abcd"}))
	assert.Contains(t, validate.Struct(in{ID: "xyz"}), "id")
}

func TestDiveIntoSlice(t *testing.T) {
	type item struct {
		PlantID  string `json:"plantId"  validate:"required"`
		Quantity int    `json:"quantity" validate:"required,gte=1"`
	}
	type cart struct {
		Items []item `json:"items" validate:"required,dive"`
	}

	errs := validate.Struct(cart{Items: []item{{PlantID: "p1", Quantity: 1}, {Quantity: 0}}})
	assert.Contains(t, errs, "items[1].plantId")
	assert.Contains(t, errs, "items[1].quantity")
	assert.NotContains(t, errs, "items[0].plantId")

	errs = validate.Struct(cart{})
	assert.Equal(t, "The items field is required.", errs["items"])
}

func TestDiveIntoStruct(t *testing.T) {
	type customer struct {
		Email string `json:"email" validate:"required,email"`
	}
	type req struct {
		Customer customer `json:"customer" validate:"dive"`
	}
	errs := validate.Struct(req{Customer: customer{Email: "nope"}})
	assert.Contains(t, errs, "customer.email")
}

func TestPointerInput(t *testing.T) {
	type in struct {
		Name string `json:"name" validate:"required"`
	}
	errs := validate.Struct(&in{})
	assert.Contains(t, errs, "name")
}
