package enrichment

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseDateReply", func() {
	It("accepts a bare date token", func() {
		Expect(parseDateReply("2025-07-01")).To(Equal("2025-07-01"))
	})

	It("tolerates surrounding whitespace", func() {
		Expect(parseDateReply("  2025-07-01\n")).To(Equal("2025-07-01"))
	})

	It("strips markdown fences", func() {
		Expect(parseDateReply("```\n2025-07-01\n```")).To(Equal("2025-07-01"))
	})

	It("strips quoting", func() {
		Expect(parseDateReply(`"2025-07-01"`)).To(Equal("2025-07-01"))
		Expect(parseDateReply("'2025-07-01'")).To(Equal("2025-07-01"))
		Expect(parseDateReply("2025-07-01.")).To(Equal("2025-07-01"))
	})

	It("treats the literal null as no date", func() {
		Expect(parseDateReply("null")).To(BeEmpty())
		Expect(parseDateReply("NULL")).To(BeEmpty())
	})

	It("rejects multi-token replies", func() {
		Expect(parseDateReply("The date is 2025-07-01")).To(BeEmpty())
	})

	It("rejects non-date tokens", func() {
		Expect(parseDateReply("soon")).To(BeEmpty())
		Expect(parseDateReply("07/01/2025")).To(BeEmpty())
		Expect(parseDateReply("2025-7-1")).To(BeEmpty())
	})

	It("rejects impossible calendar dates", func() {
		Expect(parseDateReply("2025-02-30")).To(BeEmpty())
		Expect(parseDateReply("2025-13-01")).To(BeEmpty())
	})

	It("rejects empty replies", func() {
		Expect(parseDateReply("")).To(BeEmpty())
		Expect(parseDateReply("   ")).To(BeEmpty())
	})
})

var _ = Describe("NewGemini", func() {
	It("requires an api key", func() {
		_, err := NewGemini("", "gemini-2.0-flash")
		Expect(err).To(HaveOccurred())
	})
})
