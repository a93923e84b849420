package tagging_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/snapserv/action-container-builder/pkg/gitref"
	"github.com/snapserv/action-container-builder/pkg/tagging"
)

var _ = Describe("Resolve", func() {
	Describe("static tags", func() {
		It("should keep the supplied order", func() {
			tags := tagging.Resolve(tagging.Options{Tags: []string{"v1", "stable"}}, gitref.Ref{}, "")
			Expect(tags).To(Equal([]string{"v1", "stable"}))
		})

		It("should drop empty entries", func() {
			tags := tagging.Resolve(tagging.Options{Tags: []string{"v1", "", "stable"}}, gitref.Ref{}, "")
			Expect(tags).To(Equal([]string{"v1", "stable"}))
		})

		It("should resolve to nothing when every source is disabled", func() {
			tags := tagging.Resolve(tagging.Options{}, gitref.Ref{Type: gitref.Head, Name: "master"}, "abcdef1234")
			Expect(tags).To(BeEmpty())
		})
	})

	Describe("SHA tagging", func() {
		Context("when enabled with a full commit SHA", func() {
			It("should append a tag from the first seven characters", func() {
				tags := tagging.Resolve(tagging.Options{Tags: []string{"v1"}, TagWithSHA: true}, gitref.Ref{}, "abcdef1234")
				Expect(tags).To(Equal([]string{"v1", "sha-abcdef1"}))
			})
		})

		Context("when the SHA is too short", func() {
			It("should contribute nothing", func() {
				tags := tagging.Resolve(tagging.Options{TagWithSHA: true}, gitref.Ref{}, "abc")
				Expect(tags).To(BeEmpty())
			})
		})

		Context("when the SHA is absent", func() {
			It("should contribute nothing", func() {
				tags := tagging.Resolve(tagging.Options{Tags: []string{"v1"}, TagWithSHA: true}, gitref.Ref{}, "")
				Expect(tags).To(Equal([]string{"v1"}))
			})
		})
	})

	Describe("ref tagging", func() {
		Context("with a head ref named master", func() {
			It("should publish latest instead of the branch name", func() {
				tags := tagging.Resolve(tagging.Options{TagWithRef: true}, gitref.Parse("refs/heads/master"), "")
				Expect(tags).To(Equal([]string{"latest"}))
				Expect(tags).NotTo(ContainElement("master"))
			})
		})

		Context("with any other head ref", func() {
			It("should publish the branch name verbatim", func() {
				tags := tagging.Resolve(tagging.Options{TagWithRef: true}, gitref.Parse("refs/heads/develop"), "")
				Expect(tags).To(Equal([]string{"develop"}))
			})
		})

		Context("with a pull request ref", func() {
			It("should publish pr-<number>", func() {
				tags := tagging.Resolve(tagging.Options{TagWithRef: true}, gitref.Parse("refs/pull/42/merge"), "")
				Expect(tags).To(Equal([]string{"pr-42"}))
			})
		})

		Context("with a tag ref", func() {
			It("should publish the tag name verbatim", func() {
				tags := tagging.Resolve(tagging.Options{TagWithRef: true}, gitref.Parse("refs/tags/v2.0.0"), "")
				Expect(tags).To(Equal([]string{"v2.0.0"}))
			})
		})

		Context("with an unrecognized ref", func() {
			It("should contribute nothing", func() {
				tags := tagging.Resolve(tagging.Options{Tags: []string{"v1"}, TagWithRef: true}, gitref.Parse("refs/notes/commits"), "")
				Expect(tags).To(Equal([]string{"v1"}))
			})
		})

		Context("when disabled", func() {
			It("should ignore the ref entirely", func() {
				tags := tagging.Resolve(tagging.Options{Tags: []string{"v1"}}, gitref.Parse("refs/heads/master"), "")
				Expect(tags).To(Equal([]string{"v1"}))
			})
		})
	})

	Describe("source combination", func() {
		It("should order tags static, then SHA, then ref", func() {
			opts := tagging.Options{Tags: []string{"v1"}, TagWithRef: true, TagWithSHA: true}
			tags := tagging.Resolve(opts, gitref.Parse("refs/heads/master"), "abcdef1234")
			Expect(tags).To(Equal([]string{"v1", "sha-abcdef1", "latest"}))
		})

		It("should not merge duplicates from independent sources", func() {
			opts := tagging.Options{Tags: []string{"latest"}, TagWithRef: true}
			tags := tagging.Resolve(opts, gitref.Parse("refs/heads/master"), "")
			Expect(tags).To(Equal([]string{"latest", "latest"}))
		})
	})
})
