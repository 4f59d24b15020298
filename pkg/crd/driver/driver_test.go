package driver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	runtimeclient "github.com/go-openapi/runtime/client"
	"github.com/go-openapi/strfmt"
	"github.com/netbox-community/go-netbox/netbox/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jbliao/kubesubnet/api/v1alpha1"
)

type fakeDriver struct {
	prefixes map[string][]Prefix
	nextID   int64
	failList bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{prefixes: make(map[string][]Prefix)}
}

func (f *fakeDriver) NetworkToPoolName(network string) (string, error) {
	return network, nil
}

func (f *fakeDriver) ListPrefixes(_ context.Context, poolName string) ([]Prefix, error) {
	if f.failList {
		return nil, errors.New("unreachable")
	}
	return append([]Prefix(nil), f.prefixes[poolName]...), nil
}

func (f *fakeDriver) CreatePrefix(_ context.Context, poolName, cidr, description string) error {
	f.nextID++
	f.prefixes[poolName] = append(f.prefixes[poolName], Prefix{ID: f.nextID, CIDR: cidr, Description: description})
	return nil
}

func (f *fakeDriver) DeletePrefix(_ context.Context, poolName string, p Prefix) error {
	kept := f.prefixes[poolName][:0]
	for _, q := range f.prefixes[poolName] {
		if q.ID != p.ID {
			kept = append(kept, q)
		}
	}
	f.prefixes[poolName] = kept
	return nil
}

func (f *fakeDriver) cidrs(poolName string) []string {
	var out []string
	for _, p := range f.prefixes[poolName] {
		out = append(out, p.CIDR)
	}
	sort.Strings(out)
	return out
}

var _ = Describe("Sync", func() {
	var (
		ctx    context.Context
		d      *fakeDriver
		status *v1alpha1.SubnetPlanStatus
	)

	BeforeEach(func() {
		ctx = context.Background()
		d = newFakeDriver()
		status = &v1alpha1.SubnetPlanStatus{
			Pools: []v1alpha1.PoolStatus{{CIDR: "10.0.0.0/24"}, {CIDR: "10.0.1.0/24"}},
			Allocations: []v1alpha1.SubnetAllocation{
				{Name: "web", Success: true, CIDR: "10.0.0.0/25", Pool: "10.0.0.0/24"},
				{Name: "db", Success: true, CIDR: "10.0.1.0/26", Pool: "10.0.1.0/24"},
				{Name: "big", Success: false, FailureReason: "NoCapacity"},
			},
		}
	})

	It("creates the prefixes of successful allocations", func() {
		Expect(Sync(ctx, d, "default/lab", status, logr.Discard())).To(Succeed())
		Expect(d.cidrs("10.0.0.0/24")).To(Equal([]string{"10.0.0.0/25"}))
		Expect(d.cidrs("10.0.1.0/24")).To(Equal([]string{"10.0.1.0/26"}))
		Expect(d.prefixes["10.0.0.0/24"][0].Description).To(Equal("kubesubnet:default/lab/web"))
	})

	It("is idempotent", func() {
		Expect(Sync(ctx, d, "default/lab", status, logr.Discard())).To(Succeed())
		Expect(Sync(ctx, d, "default/lab", status, logr.Discard())).To(Succeed())
		Expect(d.prefixes["10.0.0.0/24"]).To(HaveLen(1))
		Expect(d.nextID).To(BeEquivalentTo(2))
	})

	It("deletes stale prefixes it owns and keeps foreign ones", func() {
		d.prefixes["10.0.0.0/24"] = []Prefix{
			{ID: 100, CIDR: "10.0.0.128/25", Description: Description("default/lab", "old")},
			{ID: 101, CIDR: "10.0.0.192/26", Description: "router links"},
			{ID: 102, CIDR: "10.0.0.128/26", Description: Description("default/other", "x")},
		}
		Expect(Sync(ctx, d, "default/lab", status, logr.Discard())).To(Succeed())
		Expect(d.cidrs("10.0.0.0/24")).To(Equal([]string{"10.0.0.0/25", "10.0.0.128/26", "10.0.0.192/26"}))
	})

	It("returns driver errors", func() {
		d.failList = true
		Expect(Sync(ctx, d, "default/lab", status, logr.Discard())).To(MatchError(ContainSubstring("unreachable")))
	})
})

var _ = Describe("NetboxDriver", func() {
	It("parses its raw config", func() {
		d, err := NewNetboxDriver(`{"host":"netbox.local","apiKey":"secret","tags":["k8s"]}`, logr.Discard())
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Config.Host).To(Equal("netbox.local"))
		Expect(d.Config.Tags).To(Equal([]string{"k8s"}))
		Expect(d.Client).NotTo(BeNil())

		d, err = NewNetboxDriver(`{"host":"netbox.local","debug":true}`, logr.Discard())
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Client).NotTo(BeNil())
	})

	It("rejects bad config", func() {
		_, err := NewNetboxDriver(`{`, logr.Discard())
		Expect(err).To(HaveOccurred())
		_, err = NewNetboxDriver(`{}`, logr.Discard())
		Expect(err).To(HaveOccurred())
	})

	It("normalises pool names", func() {
		d, err := NewNetboxDriver(`{"host":"netbox.local"}`, logr.Discard())
		Expect(err).NotTo(HaveOccurred())
		name, err := d.NetworkToPoolName("10.0.0.7/24")
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("10.0.0.0/24"))
		_, err = d.NetworkToPoolName("bogus")
		Expect(err).To(HaveOccurred())
	})

	It("refuses prefixes outside the pool before calling netbox", func() {
		d, err := NewNetboxDriver(`{"host":"netbox.local"}`, logr.Discard())
		Expect(err).NotTo(HaveOccurred())
		err = d.CreatePrefix(context.Background(), "10.0.0.0/24", "10.0.1.0/25", "x")
		Expect(err).To(MatchError(ContainSubstring("not in pool")))
	})

	It("follows the pagination of the prefix list", func() {
		pages := map[string][]map[string]interface{}{
			"0": {
				{"id": 1, "prefix": "10.0.0.0/26", "description": "kubesubnet:lab/web"},
				{"id": 2, "prefix": "10.0.0.64/26", "description": "kubesubnet:lab/db"},
			},
			"2": {
				{"id": 3, "prefix": "10.0.0.128/26", "description": "kubesubnet:lab/old"},
			},
		}
		var offsets []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(HaveSuffix("/ipam/prefixes/"))
			Expect(r.URL.Query().Get("within")).To(Equal("10.0.0.0/24"))
			offset := r.URL.Query().Get("offset")
			offsets = append(offsets, offset)

			body := map[string]interface{}{"count": 3, "next": nil, "previous": nil, "results": pages[offset]}
			if offset == "0" {
				body["next"] = "http://" + r.Host + r.URL.Path + "?offset=2"
			}
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(body)).To(Succeed())
		}))
		defer srv.Close()

		u, err := url.Parse(srv.URL)
		Expect(err).NotTo(HaveOccurred())
		d := &NetboxDriver{
			Client: client.New(runtimeclient.New(u.Host, client.DefaultBasePath, []string{"http"}), strfmt.Default),
			logger: logr.Discard(),
		}

		got, err := d.ListPrefixes(context.Background(), "10.0.0.0/24")
		Expect(err).NotTo(HaveOccurred())
		Expect(offsets).To(Equal([]string{"0", "2"}))
		cidrs := make([]string, 0, len(got))
		for _, p := range got {
			cidrs = append(cidrs, p.CIDR)
		}
		Expect(strings.Join(cidrs, ",")).To(Equal("10.0.0.0/26,10.0.0.64/26,10.0.0.128/26"))
		Expect(got[2].ID).To(BeEquivalentTo(3))
	})
})
