package guard

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/caremesh/medgate/pkg/chat"
)

var _ = Describe("RateLimiter", func() {
	var (
		limiter *RateLimiter
		clock   time.Time
	)

	BeforeEach(func() {
		clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		limiter = NewRateLimiter()
		limiter.now = func() time.Time { return clock }
	})

	Describe("Check", func() {
		It("admits requests under the text limit", func() {
			for i := 0; i < 30; i++ {
				ok, _ := limiter.Check("user-1", chat.KindText)
				Expect(ok).To(BeTrue(), fmt.Sprintf("request %d", i))
			}
		})

		It("rejects the request over the limit within the window", func() {
			for i := 0; i < 30; i++ {
				limiter.Check("user-1", chat.KindText)
			}

			ok, msg := limiter.Check("user-1", chat.KindText)
			Expect(ok).To(BeFalse())
			Expect(msg).To(ContainSubstring("Rate limit exceeded"))
		})

		It("reports the wait until the oldest request expires", func() {
			for i := 0; i < 30; i++ {
				limiter.Check("user-1", chat.KindText)
			}
			clock = clock.Add(20 * time.Second)

			ok, msg := limiter.Check("user-1", chat.KindText)
			Expect(ok).To(BeFalse())
			Expect(msg).To(ContainSubstring("40 seconds"))
		})

		It("admits again once the window has elapsed", func() {
			for i := 0; i < 30; i++ {
				limiter.Check("user-1", chat.KindText)
			}
			clock = clock.Add(61 * time.Second)

			ok, _ := limiter.Check("user-1", chat.KindText)
			Expect(ok).To(BeTrue())
		})

		It("enforces the stricter image limit", func() {
			for i := 0; i < 5; i++ {
				ok, _ := limiter.Check("user-1", chat.KindImage)
				Expect(ok).To(BeTrue())
			}

			ok, _ := limiter.Check("user-1", chat.KindImage)
			Expect(ok).To(BeFalse())

			// Text and image windows are independent.
			ok, _ = limiter.Check("user-1", chat.KindText)
			Expect(ok).To(BeTrue())
		})

		It("tracks identities independently", func() {
			for i := 0; i < 30; i++ {
				limiter.Check("user-1", chat.KindText)
			}

			ok, _ := limiter.Check("user-2", chat.KindText)
			Expect(ok).To(BeTrue())
		})

		It("degrades unknown kinds to text limits", func() {
			for i := 0; i < 30; i++ {
				ok, _ := limiter.Check("user-1", chat.Kind("bogus"))
				Expect(ok).To(BeTrue())
			}

			ok, _ := limiter.Check("user-1", chat.Kind("bogus"))
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Sweep", func() {
		It("removes keys whose windows have fully expired", func() {
			limiter.Check("user-1", chat.KindText)
			limiter.Check("user-2", chat.KindText)

			clock = clock.Add(2 * time.Minute)
			limiter.Check("user-2", chat.KindText)

			removed := limiter.Sweep()
			Expect(removed).To(Equal(1))
			Expect(limiter.windows).To(HaveLen(1))
		})

		It("keeps live windows", func() {
			limiter.Check("user-1", chat.KindText)

			Expect(limiter.Sweep()).To(Equal(0))
			Expect(limiter.windows).To(HaveLen(1))
		})
	})
})
