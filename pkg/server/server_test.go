package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/animalet/envtoken-go/pkg/config"
	"github.com/animalet/envtoken-go/pkg/environment"
	"github.com/animalet/envtoken-go/pkg/server"
	"github.com/animalet/envtoken-go/pkg/tokens"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type fakeHost struct{}

func (fakeHost) HostName() (string, error)          { return "web01", nil }
func (fakeHost) CanonicalHostName() (string, error) { return "web01.example.com", nil }

func newEngine(local bool) *tokens.Engine {
	fields := environment.Fields{
		Name:            "dev-epe3",
		LogicalName:     "dev",
		Index:           "a",
		DataCenter:      "lax1",
		Site:            "edmunds",
		URLPrefix:       "DEV-EPE3-",
		URLLegacyPrefix: "DEV-EPE3-",
	}
	if local {
		fields = environment.Fields{Local: true, Name: "local", LogicalName: "local", Index: "a", DataCenter: "lax1", Site: "edmunds"}
	}
	engine, err := tokens.NewEngine(environment.New(fields), nil, tokens.WithHostLookup(fakeHost{}))
	Expect(err).NotTo(HaveOccurred())
	return engine
}

func ptr(s string) *string { return &s }

func do(handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		Expect(json.Unmarshal(w.Body.Bytes(), &decoded)).To(Succeed())
	}
	return w, decoded
}

var _ = Describe("Server", func() {
	var handler http.Handler

	BeforeEach(func() {
		properties := config.Properties{
			"api.url": {Local: ptr("http://localhost"), Managed: ptr("https://[URL_PREFIX]api.example.com")},
		}
		s := server.NewServer(server.Config{Address: "127.0.0.1:0"}, newEngine(false), properties)
		var err error
		handler, err = s.Handler()
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports health", func() {
		w, body := do(handler, http.MethodGet, "/healthz", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("status", "ok"))
	})

	It("sets security headers", func() {
		w, _ := do(handler, http.MethodGet, "/healthz", "")
		Expect(w.Header().Get("X-Frame-Options")).To(Equal("DENY"))
		Expect(w.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
		Expect(w.Header().Get("Content-Security-Policy")).To(ContainSubstring("default-src 'none'"))
	})

	It("describes the environment and its connection", func() {
		w, body := do(handler, http.MethodGet, "/environment", "")
		Expect(w.Code).To(Equal(http.StatusOK))

		env := body["environment"].(map[string]any)
		Expect(env).To(HaveKeyWithValue("environment_name", "dev-epe3"))
		Expect(env).To(HaveKeyWithValue("legacy_environment_name", "DEV-EPE3"))
		Expect(env).To(HaveKeyWithValue("url_prefix", "DEV-EPE3-"))

		conn := body["connection"].(map[string]any)
		Expect(conn).To(HaveKeyWithValue("internal_environment_name", "pi"))
		Expect(conn).To(HaveKeyWithValue("internal_data_center", "lax1"))
	})

	It("lists the tokens", func() {
		w, body := do(handler, http.MethodGet, "/tokens", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue(tokens.URLPrefixNoDash, "DEV-EPE3"))
		Expect(body).To(HaveKeyWithValue(tokens.HostName, "web01"))
	})

	It("resolves the configured properties", func() {
		w, body := do(handler, http.MethodGet, "/properties", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("api.url", "https://DEV-EPE3-api.example.com"))
	})

	Context("POST /substitute", func() {
		It("substitutes text", func() {
			w, body := do(handler, http.MethodPost, "/substitute", `{"text":"[PRE]_ENVIRONMENT_NAME_[POST]"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(body).To(HaveKeyWithValue("result", "[PRE]DEV-EPE3[POST]"))
		})

		It("selects the managed side of a pair", func() {
			w, body := do(handler, http.MethodPost, "/substitute", `{"local":"http://localhost","managed":"http://[URL_PREFIX]www"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(body).To(HaveKeyWithValue("result", "http://DEV-EPE3-www"))
		})

		It("reports a missing selected side", func() {
			w, _ := do(handler, http.MethodPost, "/substitute", `{"local":"http://localhost"}`)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects an empty request", func() {
			w, _ := do(handler, http.MethodPost, "/substitute", `{}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects malformed JSON", func() {
			w, _ := do(handler, http.MethodPost, "/substitute", `{"text":`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("selects the local side in a local environment", func() {
		s := server.NewServer(server.Config{Address: "127.0.0.1:0"}, newEngine(true), nil)
		h, err := s.Handler()
		Expect(err).NotTo(HaveOccurred())

		w, body := do(h, http.MethodPost, "/substitute", `{"local":"http://localhost/[LOCAL_ENVIRONMENT_NAME]","managed":"x"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("result", "http://localhost/local"))
	})

	It("rejects hosts outside the allow list", func() {
		s := server.NewServer(server.Config{Address: "127.0.0.1:0", AllowedHosts: []string{"envtoken.internal"}}, newEngine(false), nil)
		h, err := s.Handler()
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "http://evil.example.com/healthz", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("runs shutdown hooks", func() {
		s := server.NewServer(server.Config{Address: "127.0.0.1:0", ShutdownTimeout: time.Second}, newEngine(false), nil)
		called := 0
		s.AddShutdownHook(func() error { called++; return nil })
		s.AddShutdownHook(func() error { called++; return errors.New("ignored") })
		Expect(s.Start()).To(Succeed())
		Expect(s.Shutdown()).To(Succeed())
		Expect(called).To(Equal(2))
	})
})

var _ = Describe("Config", func() {
	DescribeTable("Validate",
		func(cfg server.Config, valid bool) {
			if valid {
				Expect(cfg.Validate()).To(Succeed())
			} else {
				Expect(cfg.Validate()).NotTo(Succeed())
			}
		},
		Entry("valid", server.Config{Address: "127.0.0.1:8080"}, true),
		Entry("missing address", server.Config{}, false),
		Entry("bad address", server.Config{Address: "not an address"}, false),
		Entry("negative timeout", server.Config{Address: ":8080", ShutdownTimeout: -time.Second}, false),
	)
})
