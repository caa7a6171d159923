package cache

import (
	"errors"
	"slices"
	"testing"

	"order_cache/internal/domain"
)

var strategies = []Strategy{StrategyVector, StrategyIndexed}

// eachStrategy runs fn once per storage strategy on a fresh cache.
func eachStrategy(t *testing.T, opts Options, fn func(t *testing.T, c domain.OrderCache)) {
	t.Helper()
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			c, err := New(s, opts)
			if err != nil {
				t.Fatalf("New(%s) failed: %v", s, err)
			}
			fn(t, c)
		})
	}
}

func ord(id, sec, side string, qty uint64, user, company string) domain.Order {
	s, err := domain.ParseSide(side)
	if err != nil {
		panic(err)
	}
	return domain.NewOrder(id, sec, s, qty, user, company)
}

func addAll(c domain.OrderCache, orders []domain.Order) {
	for _, o := range orders {
		c.AddOrder(o)
	}
}

// Published example sets.
var (
	exampleReadme = []domain.Order{
		ord("OrdId1", "SecId1", "Buy", 1000, "User1", "CompanyA"),
		ord("OrdId2", "SecId2", "Sell", 3000, "User2", "CompanyB"),
		ord("OrdId3", "SecId1", "Sell", 500, "User3", "CompanyA"),
		ord("OrdId4", "SecId2", "Buy", 600, "User4", "CompanyC"),
		ord("OrdId5", "SecId2", "Buy", 100, "User5", "CompanyB"),
		ord("OrdId6", "SecId3", "Buy", 1000, "User6", "CompanyD"),
		ord("OrdId7", "SecId2", "Buy", 2000, "User7", "CompanyE"),
		ord("OrdId8", "SecId2", "Sell", 5000, "User8", "CompanyE"),
	}
	exampleOne = []domain.Order{
		ord("OrdId1", "SecId1", "Sell", 100, "User10", "Company2"),
		ord("OrdId2", "SecId3", "Sell", 200, "User8", "Company2"),
		ord("OrdId3", "SecId1", "Buy", 300, "User13", "Company2"),
		ord("OrdId4", "SecId2", "Sell", 400, "User12", "Company2"),
		ord("OrdId5", "SecId3", "Sell", 500, "User7", "Company2"),
		ord("OrdId6", "SecId3", "Buy", 600, "User3", "Company1"),
		ord("OrdId7", "SecId1", "Sell", 700, "User10", "Company2"),
		ord("OrdId8", "SecId1", "Sell", 800, "User2", "Company1"),
		ord("OrdId9", "SecId2", "Buy", 900, "User6", "Company2"),
		ord("OrdId10", "SecId2", "Sell", 1000, "User5", "Company1"),
		ord("OrdId11", "SecId1", "Sell", 1100, "User13", "Company2"),
		ord("OrdId12", "SecId2", "Buy", 1200, "User9", "Company2"),
		ord("OrdId13", "SecId1", "Sell", 1300, "User1", "Company"),
	}
	exampleTwo = []domain.Order{
		ord("OrdId1", "SecId3", "Sell", 100, "User1", "Company1"),
		ord("OrdId2", "SecId3", "Sell", 200, "User3", "Company2"),
		ord("OrdId3", "SecId1", "Buy", 300, "User2", "Company1"),
		ord("OrdId4", "SecId3", "Sell", 400, "User5", "Company2"),
		ord("OrdId5", "SecId2", "Sell", 500, "User5", "Company1"),
		ord("OrdId6", "SecId2", "Buy", 600, "User3", "Company2"),
		ord("OrdId7", "SecId2", "Sell", 700, "User1", "Company1"),
		ord("OrdId8", "SecId1", "Sell", 800, "User2", "Company1"),
		ord("OrdId9", "SecId1", "Buy", 900, "User5", "Company2"),
		ord("OrdId10", "SecId1", "Sell", 1000, "User1", "Company1"),
		ord("OrdId11", "SecId2", "Sell", 1100, "User6", "Company2"),
	}
)

type scenario struct {
	name     string
	orders   []domain.Order
	want     map[string]uint64
	resident int // resident orders after extract-matching every security
}

var scenarios = []scenario{
	{"readme", exampleReadme, map[string]uint64{"SecId1": 0, "SecId2": 2700, "SecId3": 0}, 5},
	{"example one", exampleOne, map[string]uint64{"SecId1": 300, "SecId2": 1000, "SecId3": 600}, 8},
	{"example two", exampleTwo, map[string]uint64{"SecId1": 900, "SecId2": 600, "SecId3": 0}, 7},
}

var securities = []string{"SecId1", "SecId2", "SecId3"}

func TestNew_UnknownStrategy(t *testing.T) {
	if _, err := New("skiplist", Options{}); !errors.Is(err, domain.ErrUnknownStrategy) {
		t.Errorf("Expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := ParseStrategy("skiplist"); !errors.Is(err, domain.ErrUnknownStrategy) {
		t.Errorf("Expected ErrUnknownStrategy, got %v", err)
	}
	if s, err := ParseStrategy(" Indexed "); err != nil || s != StrategyIndexed {
		t.Errorf("ParseStrategy(Indexed) = %q, %v", s, err)
	}
}

func TestAddOrder(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		order := ord("OrdId1", "SecId1", "Buy", 1000, "User1", "CompanyA")
		c.AddOrder(order)

		orders := c.GetAllOrders()
		if len(orders) != 1 {
			t.Fatalf("Expected 1 order, got %d", len(orders))
		}
		if orders[0] != order {
			t.Errorf("Expected %+v, got %+v", order, orders[0])
		}

		addAll(c, exampleReadme)
		orders = c.GetAllOrders()
		if !slices.Equal(orders[1:], exampleReadme) {
			t.Errorf("Expected insertion order to be preserved, got %+v", orders[1:])
		}
		if c.Len() != 1+len(exampleReadme) {
			t.Errorf("Expected Len %d, got %d", 1+len(exampleReadme), c.Len())
		}
	})
}

func TestGetAllOrders_ReturnsCopy(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		c.AddOrder(ord("OrdId1", "SecId1", "Buy", 1000, "User1", "CompanyA"))

		snap := c.GetAllOrders()
		snap[0].Qty = 1

		if got := c.GetAllOrders()[0].Qty; got != 1000 {
			t.Errorf("Snapshot mutation leaked into cache: qty %d", got)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("single order", func(t *testing.T) {
		eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
			c.AddOrder(ord("OrdId1", "SecId1", "Buy", 1000, "User1", "CompanyA"))
			c.CancelOrder("OrdId1")
			if c.Len() != 0 {
				t.Errorf("Expected empty cache, got %d orders", c.Len())
			}
		})
	})

	t.Run("multi order", func(t *testing.T) {
		eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
			c.AddOrder(ord("OrdId1", "SecId1", "Buy", 1000, "User1", "CompanyA"))
			c.AddOrder(ord("OrdId2", "SecId1", "Buy", 1000, "User1", "CompanyA"))
			c.AddOrder(ord("OrdId3", "SecId1", "Buy", 1000, "User1", "CompanyA"))

			c.CancelOrder("OrdId2")

			orders := c.GetAllOrders()
			if len(orders) != 2 {
				t.Fatalf("Expected 2 orders, got %d", len(orders))
			}
			for _, o := range orders {
				if o.OrderID == "OrdId2" {
					t.Error("OrdId2 should have been cancelled")
				}
			}
		})
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
			c.CancelOrder("OrdId1") // empty cache

			addAll(c, exampleReadme)
			c.CancelOrder("OrdId42")
			if c.Len() != len(exampleReadme) {
				t.Errorf("Expected %d orders, got %d", len(exampleReadme), c.Len())
			}
		})
	})

	t.Run("duplicate id removes earliest only", func(t *testing.T) {
		eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
			c.AddOrder(ord("OrdId1", "SecId1", "Buy", 100, "User1", "CompanyA"))
			c.AddOrder(ord("OrdId1", "SecId2", "Sell", 200, "User2", "CompanyB"))

			c.CancelOrder("OrdId1")

			orders := c.GetAllOrders()
			if len(orders) != 1 {
				t.Fatalf("Expected 1 order, got %d", len(orders))
			}
			if orders[0].SecurityID != "SecId2" {
				t.Errorf("Expected the later duplicate to survive, got %+v", orders[0])
			}
		})
	})
}

func TestCancelOrdersForUser(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		const user = "User2"
		c.AddOrder(ord("OrdId1", "SecId1", "Buy", 1000, user, "CompanyA"))
		c.AddOrder(ord("OrdId2", "SecId1", "Sell", 1000, user, "CompanyA"))
		c.AddOrder(ord("OrdId3", "SecId1", "Sell", 1000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId4", "SecId1", "Buy", 1000, "User3", "CompanyA"))
		c.AddOrder(ord("OrdId5", "SecId1", "Buy", 1000, "User3", "CompanyA"))
		c.AddOrder(ord("OrdId6", "SecId1", "Sell", 1000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId7", "SecId1", "Sell", 1000, user, "CompanyA"))
		c.AddOrder(ord("OrdId8", "SecId1", "Buy", 1000, user, "CompanyA"))

		c.CancelOrdersForUser(user)

		orders := c.GetAllOrders()
		if len(orders) != 4 {
			t.Fatalf("Expected 4 orders, got %d", len(orders))
		}
		for _, o := range orders {
			if o.User == user {
				t.Errorf("Order %s of %s should have been cancelled", o.OrderID, user)
			}
		}

		c.CancelOrdersForUser("Nobody")
		if c.Len() != 4 {
			t.Errorf("Unknown user should be a no-op, got %d orders", c.Len())
		}
	})
}

func TestCancelOrdersForSecIDWithMinimumQty(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		const sec = "SecId1"
		c.AddOrder(ord("OrdId1", sec, "Buy", 1000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId2", sec, "Buy", 3000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId3", sec, "Buy", 100, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId4", sec, "Buy", 500, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId5", "SecId2", "Buy", 3000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId6", "SecId3", "Buy", 2000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId7", "SecId4", "Buy", 4000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId8", "SecId5", "Buy", 5000, "User1", "CompanyA"))

		c.CancelOrdersForSecIDWithMinimumQty(sec, 1000)

		orders := c.GetAllOrders()
		if len(orders) != 6 {
			t.Fatalf("Expected 6 orders, got %d", len(orders))
		}
		for _, o := range orders {
			if o.SecurityID == sec && o.Qty >= 1000 {
				t.Errorf("Order %s (qty %d) should have been cancelled", o.OrderID, o.Qty)
			}
		}
		// threshold is inclusive and only applies to the given security
		if orders[0].OrderID != "OrdId3" || orders[1].OrderID != "OrdId4" {
			t.Errorf("Expected OrdId3 and OrdId4 to survive, got %s and %s", orders[0].OrderID, orders[1].OrderID)
		}
	})
}

func TestMatchingSize_PublishedScenarios(t *testing.T) {
	variants := []struct {
		name  string
		match func(c domain.OrderCache, sec string) uint64
	}{
		{"in-place", domain.OrderCache.GetMatchingSizeForSecurity},
		{"extract", domain.OrderCache.GetMatchingSizeForSecurity2},
		{"peek", domain.OrderCache.PeekMatchingSize},
	}

	for _, sc := range scenarios {
		for _, v := range variants {
			t.Run(sc.name+"/"+v.name, func(t *testing.T) {
				eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
					addAll(c, sc.orders)
					for _, sec := range securities {
						if got := v.match(c, sec); got != sc.want[sec] {
							t.Errorf("%s(%s) = %d, want %d", v.name, sec, got, sc.want[sec])
						}
					}
				})
			})
		}
	}
}

func TestGetMatchingSizeForSecurity_LeavesFilledOrdersResident(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		addAll(c, exampleReadme)

		if got := c.GetMatchingSizeForSecurity("SecId2"); got != 2700 {
			t.Fatalf("Expected 2700, got %d", got)
		}

		orders := c.GetAllOrders()
		if len(orders) != len(exampleReadme) {
			t.Fatalf("Expected %d resident orders, got %d", len(exampleReadme), len(orders))
		}
		filled := map[string]bool{}
		for _, o := range orders {
			if o.Qty == 0 {
				filled[o.OrderID] = true
			}
		}
		for _, id := range []string{"OrdId4", "OrdId5", "OrdId7"} {
			if !filled[id] {
				t.Errorf("Expected %s to be resident with qty 0", id)
			}
		}

		// quantities were consumed, so a second run finds nothing left to cross
		if got := c.GetMatchingSizeForSecurity("SecId2"); got != 0 {
			t.Errorf("Expected 0 on second run, got %d", got)
		}

		if purged := c.PurgeFilled(); purged != 3 {
			t.Errorf("Expected 3 purged orders, got %d", purged)
		}
		if c.Len() != len(exampleReadme)-3 {
			t.Errorf("Expected %d orders after purge, got %d", len(exampleReadme)-3, c.Len())
		}
	})
}

func TestGetMatchingSizeForSecurity_PruneFilled(t *testing.T) {
	eachStrategy(t, Options{PruneFilled: true}, func(t *testing.T, c domain.OrderCache) {
		addAll(c, exampleReadme)

		if got := c.GetMatchingSizeForSecurity("SecId2"); got != 2700 {
			t.Fatalf("Expected 2700, got %d", got)
		}
		for _, o := range c.GetAllOrders() {
			if o.Qty == 0 {
				t.Errorf("Order %s should have been pruned", o.OrderID)
			}
		}
		if c.Len() != 5 {
			t.Errorf("Expected 5 resident orders, got %d", c.Len())
		}
	})
}

func TestGetMatchingSizeForSecurity2_RemovesFilledOrders(t *testing.T) {
	t.Run("one buy one sell", func(t *testing.T) {
		eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
			c.AddOrder(ord("OrdId1", "SecId1", "Sell", 1000, "User1", "CompanyA"))
			c.AddOrder(ord("OrdId2", "SecId1", "Buy", 1000, "User1", "CompanyB"))

			if got := c.GetMatchingSizeForSecurity2("SecId1"); got != 1000 {
				t.Errorf("Expected 1000, got %d", got)
			}
			if c.Len() != 0 {
				t.Errorf("Expected empty cache, got %d", c.Len())
			}
		})
	})

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
				addAll(c, sc.orders)
				for _, sec := range securities {
					c.GetMatchingSizeForSecurity2(sec)
				}

				orders := c.GetAllOrders()
				if len(orders) != sc.resident {
					t.Errorf("Expected %d resident orders, got %d", sc.resident, len(orders))
				}
				for _, o := range orders {
					if o.Qty == 0 {
						t.Errorf("Order %s resident with qty 0", o.OrderID)
					}
				}
			})
		})
	}

	t.Run("survivors move to the end with reduced quantity", func(t *testing.T) {
		eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
			addAll(c, exampleReadme)
			c.GetMatchingSizeForSecurity2("SecId2")

			want := []domain.Order{
				ord("OrdId1", "SecId1", "Buy", 1000, "User1", "CompanyA"),
				ord("OrdId3", "SecId1", "Sell", 500, "User3", "CompanyA"),
				ord("OrdId6", "SecId3", "Buy", 1000, "User6", "CompanyD"),
				ord("OrdId2", "SecId2", "Sell", 400, "User2", "CompanyB"),
				ord("OrdId8", "SecId2", "Sell", 4900, "User8", "CompanyE"),
			}
			if got := c.GetAllOrders(); !slices.Equal(got, want) {
				t.Errorf("GetAllOrders() = %+v, want %+v", got, want)
			}
		})
	})
}

func TestPeekMatchingSize_DoesNotMutate(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		addAll(c, exampleOne)
		before := c.GetAllOrders()

		for i := 0; i < 3; i++ {
			if got := c.PeekMatchingSize("SecId1"); got != 300 {
				t.Errorf("Peek #%d = %d, want 300", i, got)
			}
		}
		if after := c.GetAllOrders(); !slices.Equal(before, after) {
			t.Error("PeekMatchingSize mutated the cache")
		}
	})
}

func TestMatching_SameCompanyNeverCrosses(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		c.AddOrder(ord("OrdId1", "SecId1", "Sell", 1000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId2", "SecId1", "Buy", 1000, "User2", "CompanyA"))

		if got := c.PeekMatchingSize("SecId1"); got != 0 {
			t.Errorf("Peek = %d, want 0", got)
		}
		if got := c.GetMatchingSizeForSecurity("SecId1"); got != 0 {
			t.Errorf("in-place = %d, want 0", got)
		}
		if got := c.GetMatchingSizeForSecurity2("SecId1"); got != 0 {
			t.Errorf("extract = %d, want 0", got)
		}
		if c.Len() != 2 {
			t.Errorf("Expected both orders resident, got %d", c.Len())
		}
	})
}

func TestMatching_OneSidedOrUnknownSecurity(t *testing.T) {
	eachStrategy(t, Options{}, func(t *testing.T, c domain.OrderCache) {
		c.AddOrder(ord("OrdId1", "SecId1", "Buy", 1000, "User1", "CompanyA"))
		c.AddOrder(ord("OrdId2", "SecId1", "Buy", 500, "User2", "CompanyB"))

		for _, sec := range []string{"SecId1", "SecId9", ""} {
			if got := c.GetMatchingSizeForSecurity(sec); got != 0 {
				t.Errorf("in-place(%q) = %d, want 0", sec, got)
			}
			if got := c.GetMatchingSizeForSecurity2(sec); got != 0 {
				t.Errorf("extract(%q) = %d, want 0", sec, got)
			}
		}
		if c.Len() != 2 {
			t.Errorf("Expected 2 orders, got %d", c.Len())
		}
	})
}

func TestCross_GreedyFirstFit(t *testing.T) {
	// A depleted sell is never revisited; the second sell picks up where the first stopped.
	s1 := ord("S1", "X", "Sell", 300, "u", "A")
	s2 := ord("S2", "X", "Sell", 300, "u", "B")
	b1 := ord("B1", "X", "Buy", 200, "u", "C")
	b2 := ord("B2", "X", "Buy", 200, "u", "A")

	total := cross([]*domain.Order{&s1, &s2}, []*domain.Order{&b1, &b2})
	// S1 (A): B1 200, B2 skipped (same company) -> 200, S1 left 100
	// S2 (B): B1 0, B2 200 -> 200
	if total != 400 {
		t.Errorf("cross() = %d, want 400", total)
	}
	if s1.Qty != 100 || s2.Qty != 100 || b1.Qty != 0 || b2.Qty != 0 {
		t.Errorf("unexpected remaining qty: s1=%d s2=%d b1=%d b2=%d", s1.Qty, s2.Qty, b1.Qty, b2.Qty)
	}
}

func TestPartitionBySide_Stable(t *testing.T) {
	in := []domain.Order{
		ord("1", "X", "Buy", 1, "u", "c"),
		ord("2", "X", "Sell", 1, "u", "c"),
		ord("3", "X", "Buy", 1, "u", "c"),
		ord("4", "X", "Sell", 1, "u", "c"),
	}
	ptrs := []*domain.Order{&in[0], &in[1], &in[2], &in[3]}

	sells, buys := partitionBySide(ptrs)
	if len(sells) != 2 || sells[0].OrderID != "2" || sells[1].OrderID != "4" {
		t.Errorf("sells out of order: %v", sells)
	}
	if len(buys) != 2 || buys[0].OrderID != "1" || buys[1].OrderID != "3" {
		t.Errorf("buys out of order: %v", buys)
	}
}
