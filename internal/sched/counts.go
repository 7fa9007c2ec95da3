package sched

import (
	"github.com/mfield/retain/internal/deck"
)

// DeckDue is one row of the flat due list: raw per-deck counts under
// the hierarchical daily caps, not counting subdecks.
type DeckDue struct {
	Name string
	DID  int64
	Rev  int
	Lrn  int
	New  int
}

// DeckTreeNode is one node of the deck browser tree; counts include
// the subtree, re-capped by the deck's own daily limits.
type DeckTreeNode struct {
	Head     string // deck name without the parent components
	DID      int64
	Rev      int
	Lrn      int
	New      int
	Children []*DeckTreeNode
}

// DeckDueList computes the (rev, lrn, new) counts of every deck in
// lexicographic order. A child's limit is capped by its parents'.
func (s *Scheduler) DeckDueList() ([]DeckDue, error) {
	if err := s.checkDay(); err != nil {
		return nil, err
	}
	decks := s.col.Decks.All()
	// per-deck effective limits, consulted by children via name
	lims := map[string][2]int{}
	var data []DeckDue
	for _, d := range decks {
		p := deck.ParentName(d.Name)

		nlim := s.deckNewLimitSingle(d)
		if p != "" {
			if pl, ok := lims[p]; ok && pl[0] < nlim {
				nlim = pl[0]
			}
		}
		nNew, err := s.newForDeck(d.ID, nlim)
		if err != nil {
			return nil, err
		}

		lrn, err := s.lrnForDeck(d.ID)
		if err != nil {
			return nil, err
		}

		rlim := s.deckRevLimitSingle(d)
		if p != "" {
			if pl, ok := lims[p]; ok && pl[1] < rlim {
				rlim = pl[1]
			}
		}
		rev, err := s.revForDeck(d.ID, rlim)
		if err != nil {
			return nil, err
		}

		data = append(data, DeckDue{Name: d.Name, DID: d.ID, Rev: rev, Lrn: lrn, New: nNew})
		lims[d.Name] = [2]int{nlim, rlim}
	}
	return data, nil
}

// DeckDueTree groups the due list by "::" prefix and accumulates
// children into their parents.
func (s *Scheduler) DeckDueTree() ([]*DeckTreeNode, error) {
	list, err := s.DeckDueList()
	if err != nil {
		return nil, err
	}
	grps := make([]dueGrp, len(list))
	for i, row := range list {
		grps[i] = dueGrp{path: deck.Path(row.Name), row: row}
	}
	return s.groupChildren(grps), nil
}

type dueGrp struct {
	path []string
	row  DeckDue
}

func (s *Scheduler) groupChildren(grps []dueGrp) []*DeckTreeNode {
	var tree []*DeckTreeNode
	for i := 0; i < len(grps); {
		head := grps[i].path[0]
		j := i
		for j < len(grps) && grps[j].path[0] == head {
			j++
		}
		node := &DeckTreeNode{Head: head}
		var childGrps []dueGrp
		for _, g := range grps[i:j] {
			if len(g.path) == 1 {
				node.DID = g.row.DID
				node.Rev += g.row.Rev
				node.Lrn += g.row.Lrn
				node.New += g.row.New
			} else {
				g.path = g.path[1:]
				childGrps = append(childGrps, g)
			}
		}
		node.Children = s.groupChildren(childGrps)
		for _, ch := range node.Children {
			node.Rev += ch.Rev
			node.Lrn += ch.Lrn
			node.New += ch.New
		}
		// subtree sums are still bounded by this deck's own daily caps
		conf := s.col.Decks.ConfForDid(node.DID)
		d := s.col.Decks.Get(node.DID)
		if d != nil && !conf.Dyn {
			node.Rev = clampCount(node.Rev, conf.Rev.PerDay-d.RevToday.Count())
			node.New = clampCount(node.New, conf.New.PerDay-d.NewToday.Count())
		}
		tree = append(tree, node)
		i = j
	}
	return tree
}

func clampCount(n, lim int) int {
	if n > lim {
		n = lim
	}
	if n < 0 {
		n = 0
	}
	return n
}

// newForDeck counts new cards in one deck up to the effective limit.
func (s *Scheduler) newForDeck(did int64, lim int) (int, error) {
	if lim == 0 {
		return 0, nil
	}
	if lim > reportLimit {
		lim = reportLimit
	}
	return s.col.DB.CountNewForDeck(did, lim)
}

// lrnForDeck counts the learning repetitions due today: sub-day steps
// within the collapse window plus day-learning cards.
func (s *Scheduler) lrnForDeck(did int64) (int, error) {
	cutoff := s.col.TimeS() + int64(s.col.Conf.CollapseTime)
	sub, err := s.col.DB.SumLearnStepsDue([]int64{did}, cutoff, reportLimit)
	if err != nil {
		return 0, err
	}
	day, err := s.col.DB.CountDayLearn([]int64{did}, int64(s.today), reportLimit)
	if err != nil {
		return 0, err
	}
	return sub + day, nil
}

// revForDeck counts due reviews in one deck up to the effective limit.
func (s *Scheduler) revForDeck(did int64, lim int) (int, error) {
	if lim == 0 {
		return 0, nil
	}
	if lim > reportLimit {
		lim = reportLimit
	}
	return s.col.DB.CountRevForDeck(did, int64(s.today), lim)
}
