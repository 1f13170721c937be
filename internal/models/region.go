package models

// Region is one province, duchy or kingdom record as exported by the
// world generation pipeline. Optional fields are pointers so an absent
// value is distinguishable from zero.
type Region struct {
	ID           uint32   `json:"id"`
	Name         string   `json:"name"`
	Area         *float64 `json:"area,omitempty"`
	SeedX        *float64 `json:"seed_x,omitempty"`
	SeedY        *float64 `json:"seed_y,omitempty"`
	BiomePrimary *int     `json:"biome_primary,omitempty"`
	DuchyID      *uint32  `json:"duchy_id,omitempty"`
	KingdomID    *uint32  `json:"kingdom_id,omitempty"`
	ProvinceIDs  []uint32 `json:"province_ids,omitempty"`
	DuchyIDs     []uint32 `json:"duchy_ids,omitempty"`
}

// EntityType names what a hierarchy edit acts on.
type EntityType string

const (
	EntityProvince EntityType = "province"
	EntityDuchy    EntityType = "duchy"
	EntityKingdom  EntityType = "kingdom"
)

type ReassignRequest struct {
	EntityType EntityType `json:"entityType"`
	EntityID   uint32     `json:"entityId"`
	TargetID   uint32     `json:"targetId"`
}

type RenameRequest struct {
	EntityType EntityType `json:"entityType"`
	EntityID   uint32     `json:"entityId"`
	Name       string     `json:"name"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
