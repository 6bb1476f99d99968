package gamification

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind distinguishes the two progression variants.
type Kind string

const (
	KindQuest     Kind = "quest"     // counting, threshold-triggered
	KindAdventure Kind = "adventure" // sequential, step-based
)

// GenreMixed is the sentinel genre meaning "count distinct genres owned"
// rather than games in one genre.
const GenreMixed = "mixed"

// Definition is one immutable quest or adventure definition.
// Target is the count threshold for quests and the step count for adventures.
type Definition struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Target      int    `json:"target"`
	Points      int    `json:"points"`
	BadgeURL    string `json:"badge_url,omitempty"`
}

// Catalog is the immutable registry of definitions. It is built once at
// startup and only read afterwards, so it needs no locking.
type Catalog struct {
	defs  map[string]*Definition
	order []string
}

// NewCatalog builds a Catalog from a definition list, preserving order.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		if d.ID == "" {
			return nil, fmt.Errorf("catalog: definition %d has empty id", i)
		}
		if d.Kind != KindQuest && d.Kind != KindAdventure {
			return nil, fmt.Errorf("catalog: definition %q has unknown kind %q", d.ID, d.Kind)
		}
		if d.Target <= 0 {
			return nil, fmt.Errorf("catalog: definition %q has non-positive target", d.ID)
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate definition id %q", d.ID)
		}
		c.defs[d.ID] = &d
		c.order = append(c.order, d.ID)
	}
	return c, nil
}

// LoadCatalog reads a definitions JSON file. An empty path loads the
// built-in seed definitions.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(defaultDefinitions)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %q: %w", path, err)
	}
	var defs []Definition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}
	return NewCatalog(defs)
}

// Definition looks up one definition by id.
func (c *Catalog) Definition(id string) (*Definition, error) {
	d, ok := c.defs[id]
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	return d, nil
}

// All returns every definition in insertion order.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

// Quests returns the counting-quest definitions in insertion order.
func (c *Catalog) Quests() []*Definition { return c.byKind(KindQuest) }

// Adventures returns the adventure definitions in insertion order.
func (c *Catalog) Adventures() []*Definition { return c.byKind(KindAdventure) }

func (c *Catalog) byKind(k Kind) []*Definition {
	var out []*Definition
	for _, id := range c.order {
		if d := c.defs[id]; d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// defaultDefinitions seeds the catalog when no definitions file is configured.
var defaultDefinitions = []Definition{
	{ID: "indie_gems", Kind: KindQuest, Name: "Indie Gems Collector",
		Description: "Collect 5 indie games in your library",
		Genre:       "indie", Target: 5, Points: 30, BadgeURL: "badges/indie_gems.png"},
	{ID: "rpg_enthusiast", Kind: KindQuest, Name: "RPG Enthusiast",
		Description: "Add 3 RPG games to your collection",
		Genre:       "rpg", Target: 3, Points: 25, BadgeURL: "badges/rpg_enthusiast.png"},
	{ID: "strategy_master", Kind: KindQuest, Name: "Strategy Master",
		Description: "Own 4 strategy games",
		Genre:       "strategy", Target: 4, Points: 35, BadgeURL: "badges/strategy_master.png"},
	{ID: "action_packed", Kind: KindQuest, Name: "Action Packed",
		Description: "Fill your library with 6 action games",
		Genre:       "action", Target: 6, Points: 40, BadgeURL: "badges/action_packed.png"},
	{ID: "simulation_fan", Kind: KindQuest, Name: "Simulation Fan",
		Description: "Collect 3 simulation games",
		Genre:       "simulation", Target: 3, Points: 25, BadgeURL: "badges/simulation_fan.png"},
	{ID: "sports_collection", Kind: KindQuest, Name: "Sports Collection",
		Description: "Acquire 3 sports games",
		Genre:       "sports", Target: 3, Points: 25, BadgeURL: "badges/sports_collection.png"},
	{ID: "horror_survivor", Kind: KindQuest, Name: "Horror Survivor",
		Description: "Brave enough to own 3 horror games",
		Genre:       "horror", Target: 3, Points: 30, BadgeURL: "badges/horror_survivor.png"},
	{ID: "adventure_seeker", Kind: KindQuest, Name: "Adventure Seeker",
		Description: "Journey with 5 adventure games",
		Genre:       "adventure", Target: 5, Points: 35, BadgeURL: "badges/adventure_seeker.png"},
	{ID: "racing_enthusiast", Kind: KindQuest, Name: "Racing Enthusiast",
		Description: "Speed through with 3 racing games",
		Genre:       "racing", Target: 3, Points: 25, BadgeURL: "badges/racing_enthusiast.png"},
	{ID: "game_connoisseur", Kind: KindQuest, Name: "Game Connoisseur",
		Description: "Own games from 8 different genres",
		Genre:       GenreMixed, Target: 8, Points: 50, BadgeURL: "badges/game_connoisseur.png"},

	{ID: "indie_exploration", Kind: KindAdventure, Name: "Indie Game Exploration",
		Description: "Discover the creative world of indie games",
		Genre:       "indie", Target: 3, Points: 40, BadgeURL: "adventures/indie_exploration.png"},
	{ID: "rpg_journey", Kind: KindAdventure, Name: "RPG Journey",
		Description: "Embark on epic role-playing adventures",
		Genre:       "rpg", Target: 3, Points: 45, BadgeURL: "adventures/rpg_journey.png"},
	{ID: "strategy_expedition", Kind: KindAdventure, Name: "Strategy Expedition",
		Description: "Test your tactical mind with strategy games",
		Genre:       "strategy", Target: 3, Points: 40, BadgeURL: "adventures/strategy_expedition.png"},
	{ID: "horror_descent", Kind: KindAdventure, Name: "Horror Descent",
		Description: "Brave the terrifying world of horror games",
		Genre:       "horror", Target: 3, Points: 50, BadgeURL: "adventures/horror_descent.png"},
	{ID: "simulation_immersion", Kind: KindAdventure, Name: "Simulation Immersion",
		Description: "Experience life through simulation games",
		Genre:       "simulation", Target: 3, Points: 40, BadgeURL: "adventures/simulation_immersion.png"},
	{ID: "action_odyssey", Kind: KindAdventure, Name: "Action Odyssey",
		Description: "Get your adrenaline pumping with action games",
		Genre:       "action", Target: 3, Points: 45, BadgeURL: "adventures/action_odyssey.png"},
	{ID: "adventure_quest", Kind: KindAdventure, Name: "Adventure Quest",
		Description: "Explore worlds through adventure games",
		Genre:       "adventure", Target: 3, Points: 40, BadgeURL: "adventures/adventure_quest.png"},
}
