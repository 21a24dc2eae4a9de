// Package schema defines the read-only GraphQL view of the catalogue.
package schema

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/plantnet/plantnet-server/app/models"
	pgql "github.com/plantnet/plantnet-server/pkg/graphql"
)

// Catalog is the part of the plant service the schema reads from.
type Catalog interface {
	Find(ctx context.Context, id string) (*models.Plant, error)
	List(ctx context.Context, category string) ([]models.Plant, error)
}

var sellerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Seller",
	Fields: graphql.Fields{
		"name":  &graphql.Field{Type: graphql.String},
		"email": &graphql.Field{Type: graphql.String},
		"image": &graphql.Field{Type: graphql.String},
	},
})

var plantType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Plant",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":        &graphql.Field{Type: graphql.String},
		"category":    &graphql.Field{Type: graphql.String},
		"price":       &graphql.Field{Type: graphql.String, Description: "Decimal price, e.g. \"12.50\"."},
		"quantity":    &graphql.Field{Type: graphql.Int},
		"inStock":     &graphql.Field{Type: graphql.Boolean},
		"image":       &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"seller":      &graphql.Field{Type: sellerType},
	},
})

func plantView(p models.Plant) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID.Hex(),
		"name":        p.Name,
		"category":    p.Category,
		"price":       p.Price.StringFixed(2),
		"quantity":    p.Quantity,
		"inStock":     p.Quantity > 0,
		"image":       p.Image,
		"description": p.Description,
		"seller": map[string]interface{}{
			"name":  p.Seller.Name,
			"email": p.Seller.Email,
			"image": p.Seller.Image,
		},
	}
}

// NewCatalog builds the schema with `plants(category)` and `plant(id)`.
func NewCatalog(c Catalog) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"plants": &graphql.Field{
				Type: graphql.NewList(plantType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					category, _ := p.Args["category"].(string)
					plants, err := c.List(p.Context, category)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(plants))
					for i, pl := range plants {
						out[i] = plantView(pl)
					}
					return out, nil
				},
			},
			"plant": &graphql.Field{
				Type: plantType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					pl, err := c.Find(p.Context, id)
					if err != nil {
						return nil, err
					}
					return plantView(*pl), nil
				},
			},
		},
	})
	return pgql.NewSchema(query)
}
