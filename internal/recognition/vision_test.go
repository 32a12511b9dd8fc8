package recognition

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// tinyPNG returns a valid 1x1 PNG for annotate requests.
func tinyPNG() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("GoogleVision", func() {
	var (
		server     *ghttp.Server
		recognizer *GoogleVision
		err        error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		recognizer, err = NewGoogleVision("test-key", server.URL()+"/v1/images:annotate")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an api key", func() {
		_, err := NewGoogleVision("", "")
		Expect(err).To(HaveOccurred())
	})

	When("the service returns annotations", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/v1/images:annotate", "key=test-key"),
				ghttp.VerifyContentType("application/json"),
				ghttp.RespondWith(http.StatusOK, `{
					"responses": [{
						"localizedObjectAnnotations": [
							{"name": "Tomato", "score": 0.91},
							{"name": "Tomato", "score": 0.84}
						],
						"labelAnnotations": [
							{"description": "Carrot", "score": 0.77}
						]
					}]
				}`),
			))
		})

		It("parses objects and labels", func() {
			resp, err := recognizer.Annotate(context.Background(), tinyPNG(), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Objects).To(HaveLen(2))
			Expect(resp.Objects[0].Name).To(Equal("Tomato"))
			Expect(resp.Objects[0].Score).To(Equal(0.91))
			Expect(resp.Labels).To(HaveLen(1))
			Expect(resp.Labels[0].Description).To(Equal("Carrot"))
		})
	})

	When("the service answers 200 with a malformed body", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `not json at all`))
		})

		It("yields an empty response, not an error", func() {
			resp, err := recognizer.Annotate(context.Background(), tinyPNG(), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Empty()).To(BeTrue())
		})
	})

	When("the service answers with a non-2xx status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, `{"error": "quota"}`))
		})

		It("surfaces a transport error", func() {
			_, err := recognizer.Annotate(context.Background(), tinyPNG(), "image/png")
			Expect(err).To(MatchError(ErrServiceUnavailable))
		})
	})

	When("the service is unreachable", func() {
		It("surfaces a transport error", func() {
			dead, err := NewGoogleVision("test-key", "http://127.0.0.1:1/v1/images:annotate")
			Expect(err).NotTo(HaveOccurred())
			_, err = dead.Annotate(context.Background(), tinyPNG(), "image/png")
			Expect(err).To(MatchError(ErrServiceUnavailable))
		})
	})
})
