package controller_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"location_form/controller"
	"location_form/gateway"
	"location_form/models"
	"location_form/validation"
)

func drain(ch chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

var _ = Describe("Controller", func() {
	var (
		ctx           context.Context
		gw            *fakeGateway
		ctrl          *controller.Controller
		confirmations []models.Submission
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = newFakeGateway()
		confirmations = nil
		ctrl = controller.New(gw,
			controller.WithClock(func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }),
			controller.WithConfirmationHook(func(s models.Submission) {
				confirmations = append(confirmations, s)
			}),
		)
	})

	// fill walks the form down to a complete Kerala selection.
	fill := func() {
		Expect(ctrl.Initialize(ctx)).To(Succeed())
		Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())
		Expect(ctrl.SelectState(ctx, "Kerala")).To(Succeed())
		Expect(ctrl.SelectDistrict(ctx, "Ernakulam")).To(Succeed())
		Expect(ctrl.SelectCity(ctx, "Kochi")).To(Succeed())
	}

	Context("Initialize", func() {
		It("loads the country list and clears loading", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())

			snap := ctrl.Snapshot()
			Expect(snap.CountryOptions).To(Equal([]string{"India", "France"}))
			Expect(snap.StateOptions).To(BeEmpty())
			Expect(snap.Loading).To(BeFalse())
			Expect(snap.Failure).To(BeNil())
		})

		It("leaves the list empty and reports the failure", func() {
			gw.fail(key(gateway.OpListCountries), &gateway.NetworkError{Operation: gateway.OpListCountries, StatusCode: 500})

			err := ctrl.Initialize(ctx)
			Expect(errors.Is(err, gateway.ErrNetwork)).To(BeTrue())

			snap := ctrl.Snapshot()
			Expect(snap.CountryOptions).To(BeEmpty())
			Expect(snap.Loading).To(BeFalse())
			Expect(snap.Failure).ToNot(BeNil())
			Expect(snap.Failure.Level).To(Equal(models.LevelCountry))
			Expect(snap.Failure.Name).To(Equal("country"))
		})
	})

	Context("selecting a country", func() {
		It("fetches its states and leaves deeper levels empty", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())

			snap := ctrl.Snapshot()
			Expect(gw.Calls()).To(ContainElement(key(gateway.OpListStates, "India")))
			Expect(snap.StateOptions).To(Equal([]string{"Maharashtra", "Kerala"}))
			Expect(snap.Selection.Country).To(Equal("India"))
			Expect(snap.Selection.District).To(BeEmpty())
			Expect(snap.Selection.City).To(BeEmpty())
			Expect(snap.DistrictOptions).To(BeEmpty())
			Expect(snap.CityOptions).To(BeEmpty())
		})
	})

	Context("descendant clearing", func() {
		DescribeTable("changing a level empties every level below it",
			func(level models.Level, value string) {
				fill()
				Expect(ctrl.Select(ctx, level, value)).To(Succeed())

				snap := ctrl.Snapshot()
				Expect(snap.Selection.Get(level)).To(Equal(value))
				for _, l := range models.Levels {
					if l <= level {
						continue
					}
					Expect(snap.Selection.Get(l)).To(BeEmpty(), "selection at %s", l)
					if next, _ := level.Next(); l != next {
						Expect(snap.Options(l)).To(BeEmpty(), "options at %s", l)
					}
				}
			},
			Entry("country", models.LevelCountry, "France"),
			Entry("state", models.LevelState, "Maharashtra"),
			Entry("district", models.LevelDistrict, "Idukki"),
		)

		It("unsets a level and everything below it for an empty value", func() {
			fill()
			before := len(gw.Calls())

			Expect(ctrl.SelectState(ctx, "")).To(Succeed())

			snap := ctrl.Snapshot()
			Expect(snap.Selection).To(Equal(models.Selection{Country: "India"}))
			Expect(snap.StateOptions).To(Equal([]string{"Maharashtra", "Kerala"}))
			Expect(snap.DistrictOptions).To(BeEmpty())
			Expect(snap.CityOptions).To(BeEmpty())
			Expect(gw.Calls()).To(HaveLen(before))
		})

		It("replaces the next list with the one fetched for the new value", func() {
			fill()
			Expect(ctrl.SelectState(ctx, "Maharashtra")).To(Succeed())

			snap := ctrl.Snapshot()
			Expect(snap.DistrictOptions).To(Equal([]string{"Pune", "Mumbai Suburban"}))
			Expect(snap.CityOptions).To(BeEmpty())
		})
	})

	Context("option membership", func() {
		It("rejects a value that is not in the current list", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())

			err := ctrl.SelectState(ctx, "Brittany")
			Expect(err).To(MatchError(controller.ErrNotAnOption))
			Expect(ctrl.Snapshot().Selection.State).To(BeEmpty())
		})

		It("rejects a value from a superseded list", func() {
			fill()
			Expect(ctrl.SelectCountry(ctx, "France")).To(Succeed())

			Expect(ctrl.SelectDistrict(ctx, "Ernakulam")).To(MatchError(controller.ErrNotAnOption))
			Expect(ctrl.SelectState(ctx, "Kerala")).To(MatchError(controller.ErrNotAnOption))
		})

		It("offers padded labels trimmed and accepts them either way", func() {
			gw.states["India"] = []models.State{{Name: " Maharashtra"}, {Name: "Kerala "}, {Name: "  "}}
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())
			Expect(ctrl.Snapshot().StateOptions).To(Equal([]string{"Maharashtra", "Kerala"}))

			Expect(ctrl.SelectState(ctx, "Kerala ")).To(Succeed())
			snap := ctrl.Snapshot()
			Expect(snap.Selection.State).To(Equal("Kerala"))
			Expect(snap.DistrictOptions).To(Equal([]string{"Ernakulam", "Idukki"}))

			Expect(ctrl.SelectState(ctx, "Maharashtra")).To(Succeed())
			Expect(ctrl.Snapshot().Selection.State).To(Equal("Maharashtra"))
		})

		It("rejects every selection before the countries are loaded", func() {
			Expect(ctrl.SelectCountry(ctx, "India")).To(MatchError(controller.ErrNotAnOption))
		})

		It("rejects an unknown level", func() {
			Expect(ctrl.Select(ctx, models.Level(9), "x")).To(MatchError(controller.ErrUnknownLevel))
		})
	})

	Context("loading", func() {
		It("is raised for the duration of a successful call", func() {
			var during []bool
			gw.during = func(string) { during = append(during, ctrl.Snapshot().Loading) }

			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())

			Expect(during).To(Equal([]bool{true, true}))
			Expect(ctrl.Snapshot().Loading).To(BeFalse())
		})

		It("is cleared after a failed call", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			gw.fail(key(gateway.OpListStates, "India"), &gateway.NetworkError{Operation: gateway.OpListStates})

			var during bool
			gw.during = func(string) { during = ctrl.Snapshot().Loading }

			Expect(ctrl.SelectCountry(ctx, "India")).ToNot(Succeed())
			Expect(during).To(BeTrue())
			Expect(ctrl.Snapshot().Loading).To(BeFalse())
		})

		It("never calls the gateway for the terminal level", func() {
			fill()
			before := len(gw.Calls())

			Expect(ctrl.SelectCity(ctx, "Aluva")).To(Succeed())
			Expect(gw.Calls()).To(HaveLen(before))
			Expect(ctrl.Snapshot().Selection.City).To(Equal("Aluva"))
		})
	})

	Context("failed dependent fetch", func() {
		BeforeEach(func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())
			gw.fail(key(gateway.OpListDistricts, "India", "Kerala"), &gateway.NetworkError{Operation: gateway.OpListDistricts, StatusCode: 502})
		})

		It("keeps the selection, leaves the next list empty and records the failure", func() {
			err := ctrl.SelectState(ctx, "Kerala")
			Expect(errors.Is(err, gateway.ErrNetwork)).To(BeTrue())

			snap := ctrl.Snapshot()
			Expect(snap.Selection.State).To(Equal("Kerala"))
			Expect(snap.DistrictOptions).To(BeEmpty())
			Expect(snap.Failure).ToNot(BeNil())
			Expect(snap.Failure.Level).To(Equal(models.LevelDistrict))
		})

		It("can be retried with Refresh", func() {
			Expect(ctrl.SelectState(ctx, "Kerala")).ToNot(Succeed())
			gw.fail(key(gateway.OpListDistricts, "India", "Kerala"), nil)

			Expect(ctrl.Refresh(ctx, models.LevelDistrict)).To(Succeed())

			snap := ctrl.Snapshot()
			Expect(snap.Selection.State).To(Equal("Kerala"))
			Expect(snap.DistrictOptions).To(Equal([]string{"Ernakulam", "Idukki"}))
			Expect(snap.Failure).To(BeNil())
		})
	})

	Context("Refresh", func() {
		It("requires every ancestor to be selected", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.Refresh(ctx, models.LevelDistrict)).To(MatchError(controller.ErrAncestorUnset))
		})
	})

	Context("superseded responses", func() {
		It("discards districts for a state whose country changed while in flight", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())
			drain(gw.started)

			staleKey := key(gateway.OpListDistricts, "India", "Maharashtra")
			gate := gw.gate(staleKey)
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- ctrl.SelectState(ctx, "Maharashtra")
			}()
			Eventually(gw.started).Should(Receive(Equal(staleKey)))

			Expect(ctrl.SelectCountry(ctx, "France")).To(Succeed())
			Expect(ctrl.Snapshot().Loading).To(BeTrue())

			close(gate)
			var err error
			Eventually(done).Should(Receive(&err))
			Expect(err).To(MatchError(controller.ErrStaleResponse))

			snap := ctrl.Snapshot()
			Expect(snap.Selection).To(Equal(models.Selection{Country: "France"}))
			Expect(snap.StateOptions).To(Equal([]string{"Brittany", "Normandy"}))
			Expect(snap.DistrictOptions).To(BeEmpty())
			Expect(snap.Loading).To(BeFalse())
			Expect(snap.Failure).To(BeNil())
		})

		It("discards a failure for a superseded request", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			drain(gw.started)

			staleKey := key(gateway.OpListStates, "India")
			gw.fail(staleKey, &gateway.NetworkError{Operation: gateway.OpListStates})
			gate := gw.gate(staleKey)
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- ctrl.SelectCountry(ctx, "India")
			}()
			Eventually(gw.started).Should(Receive(Equal(staleKey)))

			Expect(ctrl.SelectCountry(ctx, "France")).To(Succeed())
			close(gate)

			var err error
			Eventually(done).Should(Receive(&err))
			Expect(err).To(MatchError(controller.ErrStaleResponse))
			Expect(ctrl.Snapshot().Failure).To(BeNil())
			Expect(ctrl.Snapshot().StateOptions).To(Equal([]string{"Brittany", "Normandy"}))
		})
	})

	Context("Submit", func() {
		It("refuses an incomplete selection without confirming", func() {
			Expect(ctrl.Initialize(ctx)).To(Succeed())
			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())

			_, err := ctrl.Submit(ctx)

			var verrs validation.Errors
			Expect(errors.As(err, &verrs)).To(BeTrue())
			Expect(verrs.Fields()).To(Equal([]string{"state", "district", "city"}))
			Expect(confirmations).To(BeEmpty())

			snap := ctrl.Snapshot()
			Expect(snap.Submitted).To(BeFalse())
			Expect(snap.Selection.Country).To(Equal("India"))
		})

		It("confirms once, resets the form and reloads the countries", func() {
			fill()

			submission, err := ctrl.Submit(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(submission.Selection).To(Equal(models.Selection{Country: "India", State: "Kerala", District: "Ernakulam", City: "Kochi"}))
			Expect(submission.SubmittedAt).To(Equal(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)))
			Expect(confirmations).To(HaveLen(1))

			snap := ctrl.Snapshot()
			Expect(snap.Submitted).To(BeTrue())
			Expect(snap.Selection).To(Equal(models.Selection{}))
			Expect(snap.CountryOptions).To(Equal([]string{"India", "France"}))
			Expect(snap.StateOptions).To(BeEmpty())
			Expect(snap.DistrictOptions).To(BeEmpty())
			Expect(snap.CityOptions).To(BeEmpty())
			Expect(snap.FormGeneration).To(Equal(uint64(1)))

			countryCalls := 0
			for _, c := range gw.Calls() {
				if c == key(gateway.OpListCountries) {
					countryCalls++
				}
			}
			Expect(countryCalls).To(Equal(2))
		})

		It("still succeeds when the country reload fails", func() {
			fill()
			gw.fail(key(gateway.OpListCountries), &gateway.NetworkError{Operation: gateway.OpListCountries})

			_, err := ctrl.Submit(ctx)
			Expect(err).ToNot(HaveOccurred())

			snap := ctrl.Snapshot()
			Expect(snap.Submitted).To(BeTrue())
			Expect(snap.CountryOptions).To(BeEmpty())
			Expect(snap.Failure).ToNot(BeNil())
		})

		It("waits for the confirmation to be acknowledged", func() {
			fill()
			_, err := ctrl.Submit(ctx)
			Expect(err).ToNot(HaveOccurred())

			Expect(ctrl.SelectCountry(ctx, "India")).To(Succeed())
			_, err = ctrl.Submit(ctx)
			Expect(err).To(MatchError(controller.ErrAwaitingAcknowledgement))

			Expect(ctrl.Acknowledge(ctx)).To(Succeed())
			Expect(ctrl.Snapshot().Submitted).To(BeFalse())
			Expect(ctrl.Acknowledge(ctx)).To(MatchError(controller.ErrNothingToAcknowledge))
			Expect(confirmations).To(HaveLen(1))
		})
	})

	Context("logging", func() {
		It("writes to the injected logger", func() {
			core, logs := observer.New(zap.DebugLevel)
			ctrl = controller.New(gw, controller.WithLogger(zap.New(core).Sugar().With("form", "f-1")))
			fill()

			_, err := ctrl.Submit(ctx)
			Expect(err).ToNot(HaveOccurred())

			submitted := logs.FilterMessage("Form submitted").All()
			Expect(submitted).To(HaveLen(1))
			Expect(submitted[0].ContextMap()).To(HaveKeyWithValue("form", "f-1"))
			Expect(submitted[0].ContextMap()).To(HaveKeyWithValue("city", "Kochi"))
		})
	})
})
