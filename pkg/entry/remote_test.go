package entry

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gomodule/redigo/redis"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type fakeTXT struct {
	records map[string][]string
	err     error
	lookups []string
}

func (f *fakeTXT) LookupTXT(ctx context.Context, name string) ([]string, error) {
	f.lookups = append(f.lookups, name)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("lookup without deadline")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records[name], nil
}

type fakeSecrets struct {
	secret *string
	err    error
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: f.secret}, nil
}

type fakeMemcache map[string]string

func (f fakeMemcache) Get(key string) (*memcache.Item, error) {
	if v, ok := f[key]; ok {
		return &memcache.Item{Key: key, Value: []byte(v)}, nil
	}
	return nil, memcache.ErrCacheMiss
}

// fakeRedisConn answers GET from a map
type fakeRedisConn struct {
	values map[string]string
	closed bool
}

func (c *fakeRedisConn) Close() error { c.closed = true; return nil }
func (c *fakeRedisConn) Err() error   { return nil }
func (c *fakeRedisConn) Do(cmd string, args ...interface{}) (interface{}, error) {
	if cmd == "" {
		return nil, nil
	}
	if cmd != "GET" || len(args) != 1 {
		return nil, errors.Errorf("unexpected command %s", cmd)
	}
	if v, ok := c.values[args[0].(string)]; ok {
		return []byte(v), nil
	}
	return nil, nil
}
func (c *fakeRedisConn) Send(string, ...interface{}) error { return nil }
func (c *fakeRedisConn) Flush() error                      { return nil }
func (c *fakeRedisConn) Receive() (interface{}, error)     { return nil, nil }

var _ = Describe("DNSSource", func() {
	It("returns the first TXT string", func() {
		txt := &fakeTXT{records: map[string][]string{EnvironmentName: {"dev-epe3", "ignored"}}}
		s := &DNSSource{resolver: txt, timeout: time.Second}

		value, err := s.Entry(context.Background(), EnvironmentName)
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("dev-epe3"))
		Expect(txt.lookups).To(Equal([]string{EnvironmentName}))
	})

	It("reports records without TXT strings as not found", func() {
		s := &DNSSource{resolver: &fakeTXT{}, timeout: time.Second}
		_, err := s.Entry(context.Background(), Site)
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("folds lookup failures into not found", func() {
		s := &DNSSource{resolver: &fakeTXT{err: errors.New("no such host")}, timeout: time.Second}
		_, err := s.Entry(context.Background(), Site)
		Expect(IsNotFound(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("no such host"))
	})

	It("defaults the timeout", func() {
		s := NewDNSSource(DNSConfig{})
		Expect(s.timeout).To(Equal(defaultDNSTimeout))
		Expect(s.Name()).To(Equal("DNS"))
	})

	It("validates the server address", func() {
		Expect(DNSConfig{Server: "10.0.0.2:53"}.Validate()).To(Succeed())
		Expect(DNSConfig{Server: "10.0.0.2"}.Validate()).NotTo(Succeed())
		Expect(DNSConfig{Timeout: -time.Second}.Validate()).NotTo(Succeed())
	})
})

var _ = Describe("AWSSource", func() {
	It("extracts entries by short name", func() {
		s := &AWSSource{client: &fakeSecrets{secret: aws.String(`{"environment-name":"dev-epe3","url-prefix":"DEV-EPE3"}`)}, secretName: "env"}
		value, err := s.Entry(context.Background(), URLPrefix)
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("DEV-EPE3"))
	})

	It("reads dotted keys as given", func() {
		s := &AWSSource{client: &fakeSecrets{secret: aws.String(`{"db":"wrong","db.password":"s3cr3t"}`)}, secretName: "app"}
		value, err := s.Key(context.Background(), "db.password")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("s3cr3t"))

		value, err = s.Entry(context.Background(), "db.password")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("wrong"))
	})

	It("reports missing keys as not found", func() {
		s := &AWSSource{client: &fakeSecrets{secret: aws.String(`{}`)}, secretName: "env"}
		_, err := s.Entry(context.Background(), Site)
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("rejects non JSON secrets", func() {
		s := &AWSSource{client: &fakeSecrets{secret: aws.String("plain")}, secretName: "env"}
		_, err := s.Entry(context.Background(), Site)
		Expect(err).To(HaveOccurred())
		Expect(IsNotFound(err)).To(BeFalse())
	})

	It("wraps client errors", func() {
		s := &AWSSource{client: &fakeSecrets{err: errors.New("denied")}, secretName: "env"}
		_, err := s.Entry(context.Background(), Site)
		Expect(err.Error()).To(ContainSubstring("denied"))
	})

	It("validates its configuration", func() {
		Expect(AWSConfig{SecretName: "env"}.Validate()).To(MatchError(ContainSubstring("AWS region is required")))
		Expect(AWSConfig{Region: "us-east-1"}.Validate()).To(MatchError(ContainSubstring("AWS secret name is required")))
		Expect(AWSConfig{Region: "us-east-1", SecretName: "env"}.Validate()).To(Succeed())
	})
})

var _ = Describe("VaultConfig", func() {
	It("requires address, token and path", func() {
		Expect(VaultConfig{Token: "t", Path: "p"}.Validate()).To(MatchError(ContainSubstring("Vault address is required")))
		Expect(VaultConfig{Address: "http://localhost:8200", Path: "p"}.Validate()).To(MatchError(ContainSubstring("Vault token is required")))
		Expect(VaultConfig{Address: "http://localhost:8200", Token: "t"}.Validate()).To(MatchError(ContainSubstring("Vault path is required")))
	})

	It("handles KV v1 and v2 payloads", func() {
		v1, err := vaultData(map[string]interface{}{"url-prefix": "DEV"})
		Expect(err).NotTo(HaveOccurred())
		Expect(v1).To(HaveKeyWithValue("url-prefix", "DEV"))

		v2, err := vaultData(map[string]interface{}{"data": map[string]interface{}{"url-prefix": "DEV"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(v2).To(HaveKeyWithValue("url-prefix", "DEV"))

		_, err = vaultData(map[string]interface{}{"data": "oops"})
		Expect(err).To(HaveOccurred())
	})

	It("creates a client from a valid configuration", func() {
		client, err := VaultConfig{Address: "http://localhost:8200", Token: "t", Path: "secret/data/env"}.CreateClient()
		Expect(err).NotTo(HaveOccurred())
		Expect(NewVaultSource(client, "secret/data/env").Name()).To(Equal("Vault"))
	})
})

var _ = Describe("MemcachedSource", func() {
	It("reads prefixed keys", func() {
		s := &MemcachedSource{client: fakeMemcache{"env/" + DataCenter: "ord"}, keyPrefix: "env/"}
		value, err := s.Entry(context.Background(), DataCenter)
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("ord"))
	})

	It("maps cache misses to not found", func() {
		s := &MemcachedSource{client: fakeMemcache{}}
		_, err := s.Entry(context.Background(), DataCenter)
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("validates its configuration", func() {
		Expect(MemcachedConfig{}.Validate()).NotTo(Succeed())
		Expect(MemcachedConfig{Servers: []string{""}}.Validate()).NotTo(Succeed())
		Expect(MemcachedConfig{Servers: []string{"localhost:11211"}, Timeout: -1}.Validate()).NotTo(Succeed())
		Expect(MemcachedConfig{Servers: []string{"localhost:11211"}}.Validate()).To(Succeed())
	})
})

var _ = Describe("RedisSource", func() {
	var conn *fakeRedisConn
	var source *RedisSource

	BeforeEach(func() {
		conn = &fakeRedisConn{values: map[string]string{"env:" + URLPrefix: "DEV-EPE3"}}
		pool := &redis.Pool{Dial: func() (redis.Conn, error) { return conn, nil }}
		source = NewRedisSource(pool, "env:")
	})

	It("reads prefixed keys", func() {
		value, err := source.Entry(context.Background(), URLPrefix)
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("DEV-EPE3"))
	})

	It("maps nil replies to not found", func() {
		_, err := source.Entry(context.Background(), Site)
		Expect(IsNotFound(err)).To(BeTrue())
	})

	It("validates its configuration", func() {
		Expect(RedisConfig{}.Validate()).To(MatchError(ContainSubstring("redis address")))
		Expect(RedisConfig{Address: "localhost:6379", MaxIdle: -1}.Validate()).NotTo(Succeed())
		Expect(RedisConfig{Address: "localhost:6379", TLS: &TLSConfig{CertFile: "c"}}.Validate()).NotTo(Succeed())
		Expect(RedisConfig{Address: "localhost:6379"}.Validate()).To(Succeed())
	})
})
