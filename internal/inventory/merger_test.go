package inventory

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pantryscan/internal/recognition"
)

var _ = Describe("Merger", func() {
	var (
		clock  *fakeClock
		merger *Merger
		items  map[string]*Item
	)

	BeforeEach(func() {
		clock = &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
		merger = NewMerger(clock, 2*time.Second)
		items = make(map[string]*Item)
	})

	detection := func(name string, count int, confidence float64) recognition.Detection {
		return recognition.Detection{
			Name:       name,
			Category:   "Vegetables",
			Count:      count,
			Confidence: confidence,
			Source:     recognition.SourceObject,
		}
	}

	It("creates a record on first merge", func() {
		result := merger.Merge(items, []recognition.Detection{detection("tomato", 3, 0.9)})
		Expect(result.Added).To(Equal(3))
		Expect(items["tomato"].Quantity).To(Equal(3))
		Expect(items["tomato"].Confidence).To(Equal(0.9))
		Expect(items["tomato"].LastDetected).To(Equal(clock.now))
	})

	It("adds quantities across merges once the cooldown expires", func() {
		result := merger.Merge(items, []recognition.Detection{detection("tomato", 3, 0.9)})
		merger.Commit(result)

		clock.Advance(3 * time.Second)
		result = merger.Merge(items, []recognition.Detection{detection("tomato", 2, 0.7)})
		merger.Commit(result)

		Expect(items["tomato"].Quantity).To(Equal(5))
	})

	It("suppresses a second merge within the cooldown window", func() {
		result := merger.Merge(items, []recognition.Detection{detection("tomato", 1, 0.9)})
		merger.Commit(result)

		clock.Advance(time.Second)
		result = merger.Merge(items, []recognition.Detection{detection("tomato", 1, 0.95)})
		Expect(result.Added).To(Equal(0))
		Expect(items["tomato"].Quantity).To(Equal(1))
		// Neither quantity nor confidence moves for a suppressed identity.
		Expect(items["tomato"].Confidence).To(Equal(0.9))
	})

	It("gates identities independently", func() {
		result := merger.Merge(items, []recognition.Detection{detection("tomato", 1, 0.9)})
		merger.Commit(result)

		clock.Advance(time.Second)
		result = merger.Merge(items, []recognition.Detection{
			detection("tomato", 1, 0.9),
			detection("carrot", 2, 0.8),
		})
		Expect(result.Added).To(Equal(2))
		Expect(items["tomato"].Quantity).To(Equal(1))
		Expect(items["carrot"].Quantity).To(Equal(2))
	})

	It("replaces confidence with the fresh per-batch average", func() {
		result := merger.Merge(items, []recognition.Detection{detection("tomato", 1, 0.6)})
		merger.Commit(result)

		clock.Advance(3 * time.Second)
		result = merger.Merge(items, []recognition.Detection{
			detection("tomato", 1, 0.9),
			detection("tomato", 1, 0.7),
		})
		merger.Commit(result)

		// The prior 0.6 does not participate: the stored value is the mean
		// of this batch's confidences only.
		Expect(items["tomato"].Confidence).To(BeNumerically("~", 0.8, 1e-9))
		Expect(items["tomato"].Quantity).To(Equal(3))
	})

	It("does not refresh cooldowns until Commit", func() {
		result := merger.Merge(items, []recognition.Detection{detection("tomato", 1, 0.9)})
		Expect(result.Added).To(Equal(1))
		// No Commit: the same batch must be mergeable again.

		fresh := make(map[string]*Item)
		result = merger.Merge(fresh, []recognition.Detection{detection("tomato", 1, 0.9)})
		Expect(result.Added).To(Equal(1))
	})

	It("records accepted merges in the history feed", func() {
		result := merger.Merge(items, []recognition.Detection{detection("tomato", 2, 0.9)})
		merger.Commit(result)

		history := merger.History()
		Expect(history).To(HaveLen(1))
		Expect(history[0].Item).To(Equal("tomato"))
		Expect(history[0].Count).To(Equal(2))
	})

	It("keeps history entries out of the feed for uncommitted merges", func() {
		merger.Merge(items, []recognition.Detection{detection("tomato", 2, 0.9)})
		Expect(merger.History()).To(BeEmpty())
	})
})
