package inventory

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tempDir string
		db      *BoltDB
		err     error
	)

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "pantryscan-test-*")
		Expect(err).NotTo(HaveOccurred())

		db, err = NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
		os.RemoveAll(tempDir)
	})

	It("loads an empty collection from a fresh database", func() {
		items, err := db.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(BeEmpty())
	})

	It("round-trips the collection", func() {
		detected := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		saved := map[string]*Item{
			"tomato": {
				Name:         "tomato",
				Quantity:     3,
				Category:     "Vegetables",
				Confidence:   0.85,
				LastDetected: detected,
				PurchaseDate: "2025-01-01",
				ExpiryDate:   "2025-02-01",
				Weight:       "500g",
			},
		}
		Expect(db.Save(saved)).To(Succeed())

		loaded, err := db.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveLen(1))
		Expect(loaded["tomato"].Quantity).To(Equal(3))
		Expect(loaded["tomato"].Confidence).To(Equal(0.85))
		Expect(loaded["tomato"].LastDetected.Equal(detected)).To(BeTrue())
		Expect(loaded["tomato"].ExpiryDate).To(Equal("2025-02-01"))
		Expect(loaded["tomato"].Weight).To(Equal("500g"))
	})

	It("replaces the stored collection wholesale", func() {
		Expect(db.Save(map[string]*Item{
			"tomato": {Name: "tomato", Quantity: 1},
			"carrot": {Name: "carrot", Quantity: 2},
		})).To(Succeed())

		Expect(db.Save(map[string]*Item{
			"milk": {Name: "milk", Quantity: 1},
		})).To(Succeed())

		loaded, err := db.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveLen(1))
		Expect(loaded).To(HaveKey("milk"))
	})

	It("persists across reopening", func() {
		path := filepath.Join(tempDir, "reopen.db")
		first, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Save(map[string]*Item{
			"carrot": {Name: "carrot", Quantity: 4},
		})).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()

		loaded, err := second.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded["carrot"].Quantity).To(Equal(4))
	})
})
