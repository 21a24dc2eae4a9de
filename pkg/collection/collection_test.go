package collection_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plantnet/plantnet-server/pkg/collection"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, collection.Map([]int{1, 2, 3}, strconv.Itoa))
	assert.Empty(t, collection.Map([]int(nil), strconv.Itoa))
}

func TestUniqueKeepsFirstOccurrence(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, collection.Unique([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, collection.Unique([]string{}))
}
