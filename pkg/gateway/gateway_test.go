package gateway_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/completion/completiontest"
	"github.com/papercomputeco/promptgate/pkg/gateway"
	"github.com/papercomputeco/promptgate/pkg/llm"
	"github.com/papercomputeco/promptgate/pkg/monitor"
)

type recordingCallback struct {
	mu        sync.Mutex
	successes []*monitor.Event
	failures  []*monitor.Event
}

func (r *recordingCallback) LogSuccess(_ context.Context, e *monitor.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, e)
}

func (r *recordingCallback) LogFailure(_ context.Context, e *monitor.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, e)
}

type panickingCallback struct{}

func (panickingCallback) LogSuccess(context.Context, *monitor.Event) { panic("callback bug") }
func (panickingCallback) LogFailure(context.Context, *monitor.Event) { panic("callback bug") }

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

const model = "deepseek-ai/DeepSeek-R1-Distill-Llama-8B"

var _ = Describe("Gateway", func() {
	var (
		ctx      context.Context
		callback *recordingCallback
	)

	BeforeEach(func() {
		ctx = context.Background()
		callback = &recordingCallback{}
	})

	newGateway := func(c completion.Completer, opts ...gateway.Option) *gateway.Gateway {
		opts = append(opts, gateway.WithCallbacks(callback))
		return gateway.New(c, model, zap.NewNop(), opts...)
	}

	Describe("GetCompletion", func() {
		It("returns the first choice text", func() {
			fake := completiontest.Reply("Hi there!")

			Expect(newGateway(fake).GetCompletion(ctx, "Hello")).To(Equal("Hi there!"))
		})

		It("returns Error: followed by the raw message on failure", func() {
			fake := completiontest.Fail(errors.New("timeout"))

			Expect(newGateway(fake).GetCompletion(ctx, "Hello")).To(Equal("Error: timeout"))
		})

		It("returns an error string when the provider has no choices", func() {
			fake := completiontest.Reply("")
			fake.Response.Choices = nil

			Expect(newGateway(fake).GetCompletion(ctx, "Hello")).To(Equal("Error: no completion choices returned"))
		})

		It("returns an error string when the completer fails with a nil *completion.Error", func() {
			var typedNil *completion.Error
			fake := completiontest.Fail(typedNil)

			result := newGateway(fake).Complete(ctx, "Hello")

			Expect(result.OK()).To(BeFalse())
			Expect(result.Err.Category).To(Equal(completion.CategoryUnknown))
			Expect(result.String()).To(Equal("Error: completer returned a nil error value"))
			Expect(callback.failures).To(HaveLen(1))
		})

		It("returns an error string when the completer panics", func() {
			fake := completiontest.Reply("unused")
			fake.Panic = "boom"

			Expect(newGateway(fake).GetCompletion(ctx, "Hello")).To(Equal("Error: completer panicked: boom"))
		})
	})

	Describe("the request payload", func() {
		DescribeTable("always holds exactly one unmodified user turn",
			func(prompt string) {
				fake := completiontest.Reply("ok")

				newGateway(fake).Complete(ctx, prompt)

				requests := fake.Requests()
				Expect(requests).To(HaveLen(1))
				Expect(requests[0].Model).To(Equal(model))
				Expect(requests[0].Messages).To(Equal([]llm.Message{{Role: "user", Content: prompt}}))
			},
			Entry("plain prompt", "Hello"),
			Entry("empty prompt", ""),
			Entry("whitespace and newlines", "  line one\nline two  "),
			Entry("prompt that looks like an error", "Error: not really"),
		)
	})

	Describe("Complete", func() {
		It("fills the result from the provider response", func() {
			fake := completiontest.Reply("Hi there!")
			fake.Response.Usage = completion.Usage{PromptTokens: 4, CompletionTokens: 3}

			result := newGateway(fake).Complete(ctx, "Hello")

			Expect(result.OK()).To(BeTrue())
			Expect(result.Text).To(Equal("Hi there!"))
			Expect(result.RequestID).To(Equal("fake-request"))
			Expect(result.Model).To(Equal("fake-model"))
			Expect(result.Provider).To(Equal("fake"))
			Expect(result.PromptTokens).To(Equal(4))
			Expect(result.CompletionTokens).To(Equal(3))
			Expect(result.Display()).To(Equal("Hi there!"))
		})

		It("generates a request id when the provider has none", func() {
			fake := completiontest.Reply("Hi there!")
			fake.Response.ID = ""

			result := newGateway(fake).Complete(ctx, "Hello")

			Expect(result.RequestID).To(MatchRegexp(`^[0-9a-f-]{36}$`))
		})

		It("estimates generated tokens only when the provider reports none", func() {
			fake := completiontest.Reply("Hi there!")

			result := newGateway(fake, gateway.WithTokenCounter(fixedCounter(9))).Complete(ctx, "Hello")
			Expect(result.CompletionTokens).To(Equal(9))

			fake.Response.Usage.CompletionTokens = 2
			result = newGateway(fake, gateway.WithTokenCounter(fixedCounter(9))).Complete(ctx, "Hello")
			Expect(result.CompletionTokens).To(Equal(2))
		})

		It("returns a structured error for failures", func() {
			fake := completiontest.Fail(&completion.Error{
				Category:   completion.CategoryProvider,
				StatusCode: 503,
				Err:        errors.New("upstream returned 503: overloaded"),
			})

			result := newGateway(fake).Complete(ctx, "Hello")

			Expect(result.OK()).To(BeFalse())
			Expect(result.Text).To(BeEmpty())
			Expect(result.Err.Category).To(Equal(completion.CategoryProvider))
			Expect(result.Err.Provider).To(Equal("fake"))
			Expect(result.String()).To(Equal("Error: upstream returned 503: overloaded"))
			Expect(result.Display()).To(Equal("The model server rejected the request (status 503)."))
			Expect(result.RequestID).NotTo(BeEmpty())
		})

		It("leaves a shared provider error untouched across concurrent calls", func() {
			shared := &completion.Error{
				Category:   completion.CategoryProvider,
				StatusCode: 503,
				Err:        errors.New("overloaded"),
			}
			g := newGateway(completiontest.Fail(shared))

			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					result := g.Complete(ctx, "Hello")
					Expect(result.Err).NotTo(BeIdenticalTo(shared))
					Expect(result.Err.Provider).To(Equal("fake"))
					Expect(result.String()).To(Equal("Error: overloaded"))
				}()
			}
			wg.Wait()

			Expect(shared.Provider).To(BeEmpty())
		})

		It("logs long prompts truncated on character boundaries", func() {
			core, logs := observer.New(zap.InfoLevel)
			g := gateway.New(completiontest.Reply("ok"), model, zap.New(core))

			g.Complete(ctx, strings.Repeat("é", 150))

			entries := logs.FilterMessage("completion received").All()
			Expect(entries).To(HaveLen(1))
			logged := entries[0].ContextMap()["prompt"].(string)
			Expect(utf8.ValidString(logged)).To(BeTrue())
			Expect(logged).To(HaveSuffix("..."))
			Expect(utf8.RuneCountInString(logged)).To(BeNumerically("<=", 100))
		})

		It("classifies context cancellation", func() {
			fake := completiontest.Fail(context.Canceled)

			result := newGateway(fake).Complete(ctx, "Hello")

			Expect(result.Err.Category).To(Equal(completion.CategoryCanceled))
		})
	})

	Describe("monitoring callbacks", func() {
		It("receive one success event per call", func() {
			fake := completiontest.Reply("Hi there!")
			fake.Response.Usage.CompletionTokens = 3

			result := newGateway(fake).Complete(ctx, "Hello")

			Expect(callback.failures).To(BeEmpty())
			Expect(callback.successes).To(HaveLen(1))
			e := callback.successes[0]
			Expect(e.RequestID).To(Equal(result.RequestID))
			Expect(e.Prompt()).To(Equal("Hello"))
			Expect(e.Text).To(Equal("Hi there!"))
			Expect(e.CompletionTokens).To(Equal(3))
			Expect(e.Latency).To(Equal(result.Latency))
		})

		It("receive one failure event per call", func() {
			fake := completiontest.Fail(errors.New("timeout"))

			newGateway(fake).Complete(ctx, "Hello")

			Expect(callback.successes).To(BeEmpty())
			Expect(callback.failures).To(HaveLen(1))
			Expect(callback.failures[0].Err.Error()).To(Equal("timeout"))
		})

		It("cannot change the result, even by panicking", func() {
			fake := completiontest.Reply("Hi there!")
			g := gateway.New(fake, model, zap.NewNop(), gateway.WithCallbacks(panickingCallback{}, callback))

			Expect(g.GetCompletion(ctx, "Hello")).To(Equal("Hi there!"))
			Expect(callback.successes).To(HaveLen(1))
		})

		It("are shared safely across concurrent calls", func() {
			fake := completiontest.Reply("Hi there!")
			g := newGateway(fake)

			var wg sync.WaitGroup
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					Expect(g.GetCompletion(ctx, "Hello")).To(Equal("Hi there!"))
				}()
			}
			wg.Wait()

			Expect(callback.successes).To(HaveLen(20))
			Expect(fake.Requests()).To(HaveLen(20))
		})
	})
})

var _ = Describe("NewCompleter", func() {
	It("builds each supported provider", func() {
		for _, p := range []gateway.ProviderConfig{
			{Provider: "openai"},
			{Provider: ""},
			{Provider: "hosted_vllm", BaseURL: "http://localhost:8000/v1"},
			{Provider: "openai_compatible", BaseURL: "http://localhost:1234/v1"},
			{Provider: "ollama"},
		} {
			c, err := gateway.NewCompleter(p)
			Expect(err).NotTo(HaveOccurred())
			if p.Provider != "" {
				Expect(c.Provider()).To(Equal(p.Provider))
			}
		}
	})

	It("requires a base URL for self-hosted OpenAI-compatible servers", func() {
		_, err := gateway.NewCompleter(gateway.ProviderConfig{Provider: "hosted_vllm"})
		Expect(err).To(MatchError(gateway.ErrBaseURLRequired))
	})

	It("rejects unknown providers", func() {
		_, err := gateway.NewCompleter(gateway.ProviderConfig{Provider: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring(`unknown provider "bedrock"`)))
		Expect(gateway.KnownProvider("bedrock")).To(BeFalse())
		Expect(gateway.KnownProvider("ollama")).To(BeTrue())
	})
})
