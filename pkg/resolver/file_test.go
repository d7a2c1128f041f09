package resolver_test

import (
	"os"
	"path/filepath"

	"github.com/animalet/envtoken-go/pkg/config"
	"github.com/animalet/envtoken-go/pkg/entry"
	"github.com/animalet/envtoken-go/pkg/resolver"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FileResolver", func() {
	var dir string

	writeCredential := func(name, content string) {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600)).To(Succeed())
	}

	newFileResolver := func() *resolver.FileResolver {
		r, err := resolver.FileResolverConfig{Dir: dir}.CreateClient()
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("feeds a credential file into the vault section", func() {
		writeCredential("vault_token", "hvs.s3cr3t\n")
		cfg, err := config.Parse([]byte(`
file_resolver:
  dir: `+dir+`
vault:
  address: https://vault.lax1.example.com:8200
  token: ${file:vault_token}
  path: secret/data/environment
`), config.YAML)
		Expect(err).NotTo(HaveOccurred())

		fileResolver, err := config.GetClient[resolver.FileResolverConfig, *resolver.FileResolver](cfg, "file_resolver")
		Expect(err).NotTo(HaveOccurred())
		Expect(fileResolver).NotTo(BeNil())

		registry := resolver.NewRegistry()
		registry.Register("file", *fileResolver)
		cfg.WithResolver(registry)

		vault, err := config.Get[entry.VaultConfig](cfg, "vault")
		Expect(err).NotTo(HaveOccurred())
		Expect(vault.Token).To(Equal("hvs.s3cr3t"))
		Expect(vault.Path).To(Equal("secret/data/environment"))
	})

	It("fails the vault section when the credential file is missing", func() {
		registry := resolver.NewRegistry()
		registry.Register("file", newFileResolver())
		cfg, err := config.Parse([]byte(`
vault:
  address: https://vault:8200
  token: ${file:vault_token}
  path: secret/data/environment
`), config.YAML)
		Expect(err).NotTo(HaveOccurred())

		_, err = config.Get[entry.VaultConfig](cfg.WithResolver(registry), "vault")
		Expect(err).To(MatchError(ContainSubstring("failed to read credential file")))
	})

	It("trims the file contents", func() {
		writeCredential("redis_password", "  p4ss \n\n")
		Expect(newFileResolver().Resolve("redis_password")).To(Equal("p4ss"))
	})

	It("returns an empty file as an empty value", func() {
		writeCredential("empty", "\n")
		Expect(newFileResolver().Resolve(" empty ")).To(BeEmpty())
	})

	DescribeTable("rejects names that are not plain file names",
		func(name, message string) {
			_, err := newFileResolver().Resolve(name)
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("empty", "", "file name is empty"),
		Entry("blank", "  ", "file name is empty"),
		Entry("parent directory", "..", "must not contain a path"),
		Entry("relative path", "../etc/passwd", "must not contain a path"),
		Entry("nested path", "sub/token", "must not contain a path"),
		Entry("windows separator", `sub\token`, "must not contain a path"),
	)

	DescribeTable("validates the section",
		func(cfg resolver.FileResolverConfig, message string) {
			if message == "" {
				Expect(cfg.Validate()).To(Succeed())
				return
			}
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(message)))
		},
		Entry("absolute directory", resolver.FileResolverConfig{Dir: "/var/run/secrets/envtoken"}, ""),
		Entry("missing directory", resolver.FileResolverConfig{}, "dir is required"),
		Entry("relative directory", resolver.FileResolverConfig{Dir: "secrets"}, "must be absolute"),
	)

	It("does not create a resolver from an invalid section", func() {
		r, err := resolver.FileResolverConfig{}.CreateClient()
		Expect(err).To(HaveOccurred())
		Expect(r).To(BeNil())
	})

	It("is named File", func() {
		Expect(newFileResolver().Name()).To(Equal("File"))
	})
})
