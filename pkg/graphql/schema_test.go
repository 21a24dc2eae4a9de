package graphql_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgql "github.com/plantnet/plantnet-server/pkg/graphql"
)

func schema(t *testing.T) graphql.Schema {
	t.Helper()
	s, err := pgql.NewSchema(graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"greeting": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "hello " + p.Args["name"].(string), nil
				},
			},
		},
	}))
	require.NoError(t, err)
	return s
}

func TestHandlerPost(t *testing.T) {
	h := pgql.Handler(schema(t))

	body := `{"query":"query($n:String){greeting(name:$n)}","variables":{"n":"fern"}}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"greeting":"hello fern"}}`, rec.Body.String())
}

func TestHandlerBadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	pgql.Handler(schema(t))(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
