package sched

import (
	"testing"

	"github.com/mfield/retain/internal/deck"
)

// buildSubdeck creates "Default::Sub" with its own preset so limits can
// differ from the parent's.
func (e *testEnv) buildSubdeck(t *testing.T, name string, newPerDay, revPerDay int) *deck.Deck {
	t.Helper()
	d, err := e.col.Decks.Create(name, nil)
	if err != nil {
		t.Fatalf("Failed to create deck %q: %v", name, err)
	}
	conf := deck.DefaultConfig()
	conf.ID = 0
	conf.Name = name + " options"
	conf.New.PerDay = newPerDay
	conf.Rev.PerDay = revPerDay
	if err := e.col.Decks.AddConfig(conf); err != nil {
		t.Fatalf("Failed to add config: %v", err)
	}
	d.ConfID = conf.ID
	if err := e.col.Decks.Save(d); err != nil {
		t.Fatalf("Failed to save deck: %v", err)
	}
	return d
}

func TestDeckDueListChildCappedByParent(t *testing.T) {
	env := setupTest(t)
	// parent allows 2 new cards, the child itself 20
	parentConf := env.col.Decks.Config(1)
	parentConf.New.PerDay = 2
	sub := env.buildSubdeck(t, "Default::Sub", 20, 100)

	for i := 0; i < 10; i++ {
		nid := env.addNote(t)
		c := env.addNewCard(t, nid)
		c.DID = sub.ID
		if err := env.db.FlushCard(c); err != nil {
			t.Fatalf("Failed to flush: %v", err)
		}
	}

	list, err := env.sched.DeckDueList()
	if err != nil {
		t.Fatalf("DeckDueList failed: %v", err)
	}

	var subRow *DeckDue
	for i := range list {
		if list[i].Name == "Default::Sub" {
			subRow = &list[i]
		}
	}
	if subRow == nil {
		t.Fatal("Subdeck missing from due list")
	}
	if subRow.New != 2 {
		t.Errorf("Expected child capped by parent's limit 2, got %d", subRow.New)
	}
}

func TestDeckDueTreeAccumulatesChildren(t *testing.T) {
	env := setupTest(t)
	sub := env.buildSubdeck(t, "Default::Sub", 20, 100)

	for i := 0; i < 3; i++ {
		nid := env.addNote(t)
		env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
	}
	for i := 0; i < 2; i++ {
		nid := env.addNote(t)
		c := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
		c.DID = sub.ID
		if err := env.db.FlushCard(c); err != nil {
			t.Fatalf("Failed to flush: %v", err)
		}
	}

	tree, err := env.sched.DeckDueTree()
	if err != nil {
		t.Fatalf("DeckDueTree failed: %v", err)
	}
	if len(tree) != 1 {
		t.Fatalf("Expected a single root, got %d", len(tree))
	}
	root := tree[0]
	if root.Head != "Default" {
		t.Fatalf("Expected root Default, got %q", root.Head)
	}
	if root.Rev != 5 {
		t.Errorf("Expected root review count 5 (own 3 + child 2), got %d", root.Rev)
	}
	if len(root.Children) != 1 || root.Children[0].Head != "Sub" {
		t.Fatalf("Expected one child Sub, got %+v", root.Children)
	}
	if root.Children[0].Rev != 2 {
		t.Errorf("Expected child review count 2, got %d", root.Children[0].Rev)
	}
}

func TestDeckDueTreeRecapsAfterStudy(t *testing.T) {
	env := setupTest(t)
	conf := env.col.Decks.Config(1)
	conf.Rev.PerDay = 4

	for i := 0; i < 6; i++ {
		nid := env.addNote(t)
		env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
	}
	// two reviews already done today
	d := env.col.Decks.Get(1)
	d.RevToday = [2]int{0, 2}
	if err := env.col.Decks.Save(d); err != nil {
		t.Fatalf("Failed to save deck: %v", err)
	}

	tree, err := env.sched.DeckDueTree()
	if err != nil {
		t.Fatalf("DeckDueTree failed: %v", err)
	}
	if tree[0].Rev != 2 {
		t.Errorf("Expected 4-2=2 reviews left, got %d", tree[0].Rev)
	}
}

func TestWalkingCountSharesParentBudget(t *testing.T) {
	env := setupTest(t)
	// parent allows 3 reviews; two children carry the cards
	parentConf := env.col.Decks.Config(1)
	parentConf.Rev.PerDay = 3
	subA := env.buildSubdeck(t, "Default::A", 20, 100)
	subB := env.buildSubdeck(t, "Default::B", 20, 100)

	for _, did := range []int64{subA.ID, subB.ID} {
		for i := 0; i < 5; i++ {
			nid := env.addNote(t)
			c := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
			c.DID = did
			if err := env.db.FlushCard(c); err != nil {
				t.Fatalf("Failed to flush: %v", err)
			}
		}
	}

	env.col.Decks.SetActive([]int64{1, subA.ID, subB.ID})
	if err := env.sched.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	_, _, r := env.sched.Counts(nil)
	if r != 3 {
		t.Errorf("Expected children to share the parent's budget of 3, got %d", r)
	}
}

func TestFilteredDeckUnlimited(t *testing.T) {
	env := setupTest(t)
	dyn := env.addDynDeck(t)
	d := env.col.Decks.Get(dyn.ID)
	if lim := env.sched.deckNewLimitSingle(d); lim != reportLimit {
		t.Errorf("Expected filtered deck new limit %d, got %d", reportLimit, lim)
	}
	if lim := env.sched.deckRevLimitSingle(d); lim != reportLimit {
		t.Errorf("Expected filtered deck rev limit %d, got %d", reportLimit, lim)
	}
}

func TestLimitAllCards(t *testing.T) {
	env := setupTest(t)
	env.col.Conf.LimitAllCards = true
	conf := env.col.Decks.Config(1)
	conf.New.PerDay = 20
	conf.PerDayAll = 5

	d := env.col.Decks.Get(1)
	d.RevToday = [2]int{0, 2}
	d.NewToday = [2]int{0, 1}
	if err := env.col.Decks.Save(d); err != nil {
		t.Fatalf("Failed to save deck: %v", err)
	}

	// 5 total - 2 reviews - 1 new = 2 left
	if lim := env.sched.deckNewLimitSingle(d); lim != 2 {
		t.Errorf("Expected combined cap 2, got %d", lim)
	}
}
