package models_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"location_form/models"
)

var _ = Describe("Level", func() {
	It("orders the levels from country down to city", func() {
		Expect(models.Levels).To(Equal([]models.Level{
			models.LevelCountry, models.LevelState, models.LevelDistrict, models.LevelCity,
		}))
		Expect(models.LevelCountry < models.LevelCity).To(BeTrue())
	})

	It("steps to the next level until the terminal one", func() {
		next, ok := models.LevelState.Next()
		Expect(ok).To(BeTrue())
		Expect(next).To(Equal(models.LevelDistrict))

		_, ok = models.LevelCity.Next()
		Expect(ok).To(BeFalse())
		Expect(models.LevelCity.Terminal()).To(BeTrue())
	})

	DescribeTable("ParseLevel",
		func(in string, want models.Level) {
			got, err := models.ParseLevel(in)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(want))
			Expect(got.String()).To(Equal(strings.ToLower(strings.TrimSpace(in))))
		},
		Entry("country", "country", models.LevelCountry),
		Entry("mixed case", "State", models.LevelState),
		Entry("padded", " district ", models.LevelDistrict),
		Entry("city", "city", models.LevelCity),
	)

	It("rejects unknown names", func() {
		_, err := models.ParseLevel("planet")
		Expect(err).To(HaveOccurred())
		Expect(models.Level(7).Valid()).To(BeFalse())
		Expect(models.Level(7).String()).To(Equal("level(7)"))
	})
})

var _ = Describe("Selection", func() {
	It("gets and sets by level", func() {
		var s models.Selection
		for i, l := range models.Levels {
			s.Set(l, string(rune('a'+i)))
		}
		Expect(s).To(Equal(models.Selection{Country: "a", State: "b", District: "c", City: "d"}))
		Expect(s.Get(models.LevelDistrict)).To(Equal("c"))
	})

	It("clears a level and everything below it", func() {
		s := models.Selection{Country: "India", State: "Kerala", District: "Ernakulam", City: "Kochi"}
		s.ClearFrom(models.LevelDistrict)
		Expect(s).To(Equal(models.Selection{Country: "India", State: "Kerala"}))

		s.ClearFrom(models.LevelCountry)
		Expect(s).To(Equal(models.Selection{}))
	})
})
