package transcript_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/caremesh/medgate/pkg/chat"
	"github.com/caremesh/medgate/pkg/transcript"
)

// Both store implementations must satisfy the same contract, so the
// behaviors run once per backend.
func describeStore(name string, open func() transcript.Store) bool {
	return Describe(name, func() {
		var (
			store transcript.Store
			ctx   context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = open()
		})

		AfterEach(func() {
			store.Close()
		})

		Describe("GetOrCreate", func() {
			It("creates a conversation in collecting_info", func() {
				conv, err := store.GetOrCreate(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(conv.ID).To(Equal("conv-1"))
				Expect(conv.State).To(Equal(chat.StateCollecting))
				Expect(conv.Metadata).To(BeEmpty())
			})

			It("returns the existing conversation on repeat calls", func() {
				_, err := store.GetOrCreate(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.SetState(ctx, "conv-1", chat.StateReadyForImage)).To(Succeed())

				conv, err := store.GetOrCreate(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(conv.State).To(Equal(chat.StateReadyForImage))
			})
		})

		Describe("AppendMessage and Messages", func() {
			BeforeEach(func() {
				_, err := store.GetOrCreate(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
			})

			It("keeps the transcript in append order", func() {
				Expect(store.AppendMessage(ctx, "conv-1", transcript.Entry{Sender: "user", Text: "first"})).To(Succeed())
				Expect(store.AppendMessage(ctx, "conv-1", transcript.Entry{Sender: "bot", Text: "second"})).To(Succeed())
				Expect(store.AppendMessage(ctx, "conv-1", transcript.Entry{Sender: "user", Text: "third"})).To(Succeed())

				msgs, err := store.Messages(ctx, "conv-1", 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(msgs).To(HaveLen(3))
				Expect(msgs[0].Text).To(Equal("first"))
				Expect(msgs[2].Text).To(Equal("third"))
			})

			It("limits to the most recent entries in chronological order", func() {
				for _, text := range []string{"a", "b", "c", "d"} {
					Expect(store.AppendMessage(ctx, "conv-1", transcript.Entry{Sender: "user", Text: text})).To(Succeed())
				}

				msgs, err := store.Messages(ctx, "conv-1", 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(msgs).To(HaveLen(2))
				Expect(msgs[0].Text).To(Equal("c"))
				Expect(msgs[1].Text).To(Equal("d"))
			})

			It("stores image references on entries", func() {
				Expect(store.AppendMessage(ctx, "conv-1", transcript.Entry{
					Sender: "user", Text: "[Image sent]", Image: "https://cdn.example.com/a.jpg",
				})).To(Succeed())

				msgs, err := store.Messages(ctx, "conv-1", 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(msgs[0].Image).To(Equal("https://cdn.example.com/a.jpg"))
			})

			It("rejects appends to unknown conversations", func() {
				err := store.AppendMessage(ctx, "missing", transcript.Entry{Sender: "user", Text: "x"})
				Expect(err).To(BeAssignableToTypeOf(transcript.ErrNotFound{}))
			})
		})

		Describe("MergeMetadata", func() {
			BeforeEach(func() {
				_, err := store.GetOrCreate(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
			})

			It("merges with last-write-wins per field", func() {
				Expect(store.MergeMetadata(ctx, "conv-1", map[string]any{"age": "35", "sex": "male"})).To(Succeed())
				Expect(store.MergeMetadata(ctx, "conv-1", map[string]any{"age": "36", "duration": "3 days"})).To(Succeed())

				meta, err := store.Metadata(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(meta).To(HaveKeyWithValue("age", "36"))
				Expect(meta).To(HaveKeyWithValue("sex", "male"))
				Expect(meta).To(HaveKeyWithValue("duration", "3 days"))
			})

			It("errors for unknown conversations", func() {
				err := store.MergeMetadata(ctx, "missing", map[string]any{"a": "b"})
				Expect(err).To(BeAssignableToTypeOf(transcript.ErrNotFound{}))
			})
		})

		Describe("State transitions", func() {
			It("persists the explicit state tag", func() {
				_, err := store.GetOrCreate(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())

				for _, state := range []chat.State{
					chat.StateReadyForImage, chat.StateImageSubmitted, chat.StateReported,
				} {
					Expect(store.SetState(ctx, "conv-1", state)).To(Succeed())
					got, err := store.State(ctx, "conv-1")
					Expect(err).NotTo(HaveOccurred())
					Expect(got).To(Equal(state))
				}
			})

			It("errors for unknown conversations", func() {
				Expect(store.SetState(ctx, "missing", chat.StateBlocked)).
					To(BeAssignableToTypeOf(transcript.ErrNotFound{}))
			})
		})

		Describe("SaveReport and Reports", func() {
			It("appends report records in order", func() {
				_, err := store.GetOrCreate(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())

				Expect(store.SaveReport(ctx, "conv-1", map[string]any{
					"diagnosis": map[string]any{"label": "Eczema", "confidence": 0.87},
				})).To(Succeed())
				Expect(store.SaveReport(ctx, "conv-1", map[string]any{"retry": true})).To(Succeed())

				records, err := store.Reports(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
				Expect(records[0]).To(HaveKey("diagnosis"))
			})
		})
	})
}

var _ = describeStore("MemoryStore", func() transcript.Store {
	return transcript.NewMemoryStore()
})

var _ = describeStore("SQLiteStore", func() transcript.Store {
	store, err := transcript.NewSQLiteStore(":memory:")
	Expect(err).NotTo(HaveOccurred())
	return store
})

var _ = Describe("SQLiteStore file database", func() {
	It("creates the database file", func() {
		tmpDir := GinkgoT().TempDir()
		dbPath := filepath.Join(tmpDir, "transcript.db")

		store, err := transcript.NewSQLiteStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})
})
