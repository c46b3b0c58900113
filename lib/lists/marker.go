package lists

import (
	"github.com/ether/etherdoc/lib/models/doc"
)

type Marker string

const (
	MarkerBullet  Marker = "bullet"
	MarkerDecimal Marker = "decimal"
	MarkerAlpha   Marker = "alpha"
	MarkerRoman   Marker = "roman"
)

var orderedMarkers = []Marker{MarkerDecimal, MarkerAlpha, MarkerRoman, MarkerDecimal}

// MarkerFor returns the marker an item of the given list type shows at
// level. Ordered markers repeat every four levels.
func MarkerFor(listType doc.NodeType, level int) Marker {
	if listType != doc.TypeOrderedList {
		return MarkerBullet
	}
	if level < 1 {
		level = 1
	}
	return orderedMarkers[(level-1)%len(orderedMarkers)]
}

// ItemState is the observable state of one list item.
type ItemState struct {
	ItemID    string       `json:"itemId"`
	ListType  doc.NodeType `json:"listType"`
	NestLevel int          `json:"nestLevel"`
	Marker    Marker       `json:"marker"`
}

// StateOf derives the state of the list item with the given ID.
func StateOf(root *doc.Node, itemID string) (ItemState, bool) {
	item, path := root.FindByID(itemID)
	if item == nil || item.Type != doc.TypeListItem || len(path) == 0 {
		return ItemState{}, false
	}
	list := root.NodeAt(path[:len(path)-1])
	level := doc.ListLevel(root, path)
	return ItemState{
		ItemID:    itemID,
		ListType:  list.Type,
		NestLevel: level,
		Marker:    MarkerFor(list.Type, level),
	}, true
}
