package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLead = 30 * time.Minute
	DefaultLag  = 30 * time.Minute

	ActionDone      = "done"
	ActionDoneTitle = "Mark done"
)

// Payload data keys.
const (
	DataFamily = "family"
	DataKind   = "kind"
	DataDate   = "date"
	DataMeal   = "meal"
	DataSlot   = "slot"
	DataML     = "ml"
)

type MealDefinition struct {
	Key       Meal   `json:"key" yaml:"key"`
	StartHour int    `json:"start_hour" yaml:"start_hour"`
	EndHour   int    `json:"end_hour" yaml:"end_hour"`
	Title     string `json:"title" yaml:"title"`
}

type HydrationSlot struct {
	TimeOfDay   string `json:"time" yaml:"time"`
	Title       string `json:"title" yaml:"title"`
	Milliliters int    `json:"ml" yaml:"ml"`
	Note        string `json:"note,omitempty" yaml:"note,omitempty"`
}

type HydrationPlan struct {
	Principle string          `json:"principle" yaml:"principle"`
	TotalHint string          `json:"total_hint" yaml:"total_hint"`
	Slots     []HydrationSlot `json:"slots" yaml:"slots"`
}

func DefaultMeals() []MealDefinition {
	return []MealDefinition{
		{Key: Breakfast, StartHour: 6, EndHour: 8, Title: "Breakfast"},
		{Key: Lunch, StartHour: 11, EndHour: 13, Title: "Lunch"},
		{Key: Dinner, StartHour: 18, EndHour: 20, Title: "Dinner"},
	}
}

func DefaultHydrationPlans() map[Goal]HydrationPlan {
	return map[Goal]HydrationPlan{
		GoalLose: {
			Principle: "Drink a glass before each meal to help with fullness",
			TotalHint: "about 2.0-2.5 L per day",
			Slots: []HydrationSlot{
				{TimeOfDay: "07:00", Title: "Wake-up water", Milliliters: 300, Note: "Right after waking"},
				{TimeOfDay: "09:30", Title: "Mid-morning water", Milliliters: 250},
				{TimeOfDay: "12:15", Title: "Water before lunch", Milliliters: 250, Note: "About 15 minutes before eating"},
				{TimeOfDay: "15:00", Title: "Afternoon water", Milliliters: 300},
				{TimeOfDay: "17:30", Title: "Water before dinner", Milliliters: 250},
				{TimeOfDay: "20:00", Title: "Evening water", Milliliters: 200, Note: "Small sips"},
			},
		},
		GoalGain: {
			Principle: "Drink between meals so there is room left for food",
			TotalHint: "about 2.0 L per day",
			Slots: []HydrationSlot{
				{TimeOfDay: "07:30", Title: "Morning water", Milliliters: 300},
				{TimeOfDay: "10:00", Title: "Mid-morning water", Milliliters: 300},
				{TimeOfDay: "14:30", Title: "Afternoon water", Milliliters: 300, Note: "Between lunch and dinner"},
				{TimeOfDay: "16:30", Title: "Late afternoon water", Milliliters: 300},
				{TimeOfDay: "21:00", Title: "Evening water", Milliliters: 250},
			},
		},
		GoalMaintain: {
			Principle: "Keep a steady intake through the day",
			TotalHint: "about 2.0 L per day",
			Slots: []HydrationSlot{
				{TimeOfDay: "07:00", Title: "Morning water", Milliliters: 250},
				{TimeOfDay: "10:00", Title: "Mid-morning water", Milliliters: 250},
				{TimeOfDay: "13:00", Title: "After-lunch water", Milliliters: 250},
				{TimeOfDay: "15:30", Title: "Afternoon water", Milliliters: 250},
				{TimeOfDay: "18:00", Title: "Early evening water", Milliliters: 250},
				{TimeOfDay: "20:30", Title: "Evening water", Milliliters: 200},
			},
		},
	}
}

// Slot is one schedulable reminder template: a family, its sub-key (meal key
// or hydration slot index) and the nominal time before the lead/lag offset.
type Slot struct {
	Family Family
	SubKey string
	Base   TimeOfDay
	Offset time.Duration

	Title string
	Body  string
	Data  map[string]string
}

// Catalog holds the static plan tables. It is immutable after construction.
type Catalog struct {
	meals []MealDefinition
	plans map[Goal]HydrationPlan
	lead  time.Duration
	lag   time.Duration
}

type CatalogOptions struct {
	Meals []MealDefinition
	Plans map[Goal]HydrationPlan
	Lead  time.Duration
	Lag   time.Duration
}

// DefaultCatalog returns the built-in tables.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(CatalogOptions{})
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates and copies the tables. Empty fields take the defaults.
func NewCatalog(opt CatalogOptions) (*Catalog, error) {
	meals := opt.Meals
	if len(meals) == 0 {
		meals = DefaultMeals()
	}
	plans := opt.Plans
	if len(plans) == 0 {
		plans = DefaultHydrationPlans()
	}
	c := &Catalog{
		meals: make([]MealDefinition, 0, len(meals)),
		plans: make(map[Goal]HydrationPlan, len(plans)),
		lead:  opt.Lead,
		lag:   opt.Lag,
	}
	if c.lead <= 0 {
		c.lead = DefaultLead
	}
	if c.lag <= 0 {
		c.lag = DefaultLag
	}

	seen := map[Meal]bool{}
	for _, m := range meals {
		if _, ok := ParseMeal(string(m.Key)); !ok {
			return nil, fmt.Errorf("meal %q: unknown key", m.Key)
		}
		if seen[m.Key] {
			return nil, fmt.Errorf("meal %q: duplicate", m.Key)
		}
		seen[m.Key] = true
		if m.StartHour < 0 || m.StartHour > 23 || m.EndHour < 0 || m.EndHour > 23 || m.EndHour < m.StartHour {
			return nil, fmt.Errorf("meal %q: invalid window %d-%d", m.Key, m.StartHour, m.EndHour)
		}
		if strings.TrimSpace(m.Title) == "" {
			m.Title = strings.ToUpper(string(m.Key[:1])) + string(m.Key[1:])
		}
		c.meals = append(c.meals, m)
	}
	for g, p := range plans {
		if _, err := ParseGoal(string(g)); err != nil {
			return nil, err
		}
		cp := HydrationPlan{Principle: p.Principle, TotalHint: p.TotalHint, Slots: append([]HydrationSlot(nil), p.Slots...)}
		for i, s := range cp.Slots {
			if _, err := ParseTimeOfDay(s.TimeOfDay); err != nil {
				return nil, fmt.Errorf("hydration plan %s slot %d: %w", g, i, err)
			}
			if s.Milliliters <= 0 {
				return nil, fmt.Errorf("hydration plan %s slot %d: ml must be positive", g, i)
			}
		}
		c.plans[g] = cp
	}
	return c, nil
}

func (c *Catalog) Meals() []MealDefinition {
	return append([]MealDefinition(nil), c.meals...)
}

func (c *Catalog) Meal(key Meal) (MealDefinition, bool) {
	for _, m := range c.meals {
		if m.Key == key {
			return m, true
		}
	}
	return MealDefinition{}, false
}

// Plan returns the hydration plan for g, falling back to MAINTAIN.
func (c *Catalog) Plan(g Goal) HydrationPlan {
	if p, ok := c.plans[g]; ok {
		return p
	}
	return c.plans[GoalMaintain]
}

// Slots lists every slot of family in plan order. goal only matters for hydration.
func (c *Catalog) Slots(f Family, g Goal) ([]Slot, error) {
	switch f {
	case FamilyMealPre, FamilyMealPost:
		out := make([]Slot, 0, len(c.meals))
		for _, m := range c.meals {
			out = append(out, c.mealSlot(f, m))
		}
		return out, nil
	case FamilyHydration:
		p := c.Plan(g)
		out := make([]Slot, 0, len(p.Slots))
		for i, s := range p.Slots {
			out = append(out, c.hydrationSlot(i, s))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
}

// Slot resolves one slot by sub-key.
func (c *Catalog) Slot(f Family, subKey string, g Goal) (Slot, error) {
	switch f {
	case FamilyMealPre, FamilyMealPost:
		key, ok := ParseMeal(subKey)
		if !ok {
			return Slot{}, fmt.Errorf("%w: %s/%s", ErrUnknownSlot, f, subKey)
		}
		m, ok := c.Meal(key)
		if !ok {
			return Slot{}, fmt.Errorf("%w: %s/%s", ErrUnknownSlot, f, subKey)
		}
		return c.mealSlot(f, m), nil
	case FamilyHydration:
		idx, err := strconv.Atoi(strings.TrimSpace(subKey))
		p := c.Plan(g)
		if err != nil || idx < 0 || idx >= len(p.Slots) {
			return Slot{}, fmt.Errorf("%w: %s/%s", ErrUnknownSlot, f, subKey)
		}
		return c.hydrationSlot(idx, p.Slots[idx]), nil
	}
	return Slot{}, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
}

func (c *Catalog) mealSlot(f Family, m MealDefinition) Slot {
	s := Slot{
		Family: f,
		SubKey: string(m.Key),
		Data: map[string]string{
			DataFamily: string(f),
			DataKind:   string(f),
			DataMeal:   string(m.Key),
		},
	}
	if f == FamilyMealPre {
		s.Base = TimeOfDay{Hour: m.StartHour}
		s.Offset = -c.lead
		s.Title = m.Title + " time is coming up"
		s.Body = fmt.Sprintf("Your %s window opens at %02d:00. Plan a balanced plate.", strings.ToLower(m.Title), m.StartHour)
	} else {
		s.Base = TimeOfDay{Hour: m.EndHour}
		s.Offset = c.lag
		s.Title = "Did you log " + strings.ToLower(m.Title) + "?"
		s.Body = fmt.Sprintf("The %s window closed at %02d:00. Log what you ate to keep your diary complete.", strings.ToLower(m.Title), m.EndHour)
	}
	return s
}

func (c *Catalog) hydrationSlot(idx int, hs HydrationSlot) Slot {
	tod, _ := ParseTimeOfDay(hs.TimeOfDay)
	body := fmt.Sprintf("%d ml", hs.Milliliters)
	if strings.TrimSpace(hs.Note) != "" {
		body += ". " + hs.Note
	}
	return Slot{
		Family: FamilyHydration,
		SubKey: strconv.Itoa(idx),
		Base:   tod,
		Title:  hs.Title,
		Body:   body,
		Data: map[string]string{
			DataFamily: string(FamilyHydration),
			DataKind:   string(FamilyHydration),
			DataSlot:   strconv.Itoa(idx),
			DataML:     strconv.Itoa(hs.Milliliters),
		},
	}
}
