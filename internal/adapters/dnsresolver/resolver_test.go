package dnsresolver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDoHServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/dns-json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/dns-json")

		name, qtype := r.URL.Query().Get("name"), r.URL.Query().Get("type")
		switch {
		case name == "example.com" && qtype == "MX":
			w.Write([]byte(`{"Status":0,"Answer":[{"name":"example.com.","type":15,"TTL":300,"data":"10 mail.example.com."},{"name":"example.com.","type":15,"TTL":300,"data":"20 backup.example.com."}]}`))
		case name == "example.com" && qtype == "A":
			w.Write([]byte(`{"Status":0,"Answer":[{"name":"www.example.com.","type":5,"TTL":300,"data":"example.com."},{"name":"example.com.","type":1,"TTL":300,"data":"93.184.216.34"}]}`))
		case name == "nullmx.example":
			w.Write([]byte(`{"Status":0,"Answer":[{"name":"nullmx.example.","type":15,"TTL":300,"data":"0 ."}]}`))
		case name == "missing.example":
			w.Write([]byte(`{"Status":3}`))
		case name == "broken.example":
			w.Write([]byte(`{"Status":2}`))
		case name == "down.example":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`{"Status":0}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDoHResolver(t *testing.T) {
	srv := newDoHServer(t)
	r := NewDoHResolver(srv.URL, srv.Client(), zap.NewNop())
	ctx := context.Background()

	hosts, err := r.LookupMX(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"mail.example.com", "backup.example.com"}, hosts)

	addrs, err := r.LookupA(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"93.184.216.34"}, addrs)

	hosts, err = r.LookupMX(ctx, "nullmx.example")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	hosts, err = r.LookupMX(ctx, "missing.example")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	hosts, err = r.LookupMX(ctx, "empty.example")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	_, err = r.LookupMX(ctx, "broken.example")
	assert.Error(t, err)

	_, err = r.LookupA(ctx, "down.example")
	assert.Error(t, err)
}

func TestDoHResolverHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := NewDoHResolver(srv.URL, srv.Client(), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.LookupMX(ctx, "slow.example")
	assert.Error(t, err)
}

func newWireServer(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		switch {
		case q.Name == "example.com." && q.Qtype == dns.TypeMX:
			rr, _ := dns.NewRR("example.com. 300 IN MX 10 mail.example.com.")
			m.Answer = append(m.Answer, rr)
		case q.Name == "example.com." && q.Qtype == dns.TypeA:
			rr, _ := dns.NewRR("example.com. 300 IN A 93.184.216.34")
			m.Answer = append(m.Answer, rr)
		case q.Name == "nullmx.example.":
			rr, _ := dns.NewRR("nullmx.example. 300 IN MX 0 .")
			m.Answer = append(m.Answer, rr)
		case q.Name == "missing.example.":
			m.SetRcode(req, dns.RcodeNameError)
		case q.Name == "broken.example.":
			m.SetRcode(req, dns.RcodeServerFailure)
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go server.ActivateAndServe()
	<-started
	t.Cleanup(func() { server.Shutdown() })

	return pc.LocalAddr().String()
}

func TestWireResolver(t *testing.T) {
	r := NewWireResolver(newWireServer(t), time.Second, zap.NewNop())
	ctx := context.Background()

	hosts, err := r.LookupMX(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"mail.example.com"}, hosts)

	addrs, err := r.LookupA(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"93.184.216.34"}, addrs)

	hosts, err = r.LookupMX(ctx, "nullmx.example")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	hosts, err = r.LookupMX(ctx, "nomail.example")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	hosts, err = r.LookupMX(ctx, "missing.example")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	_, err = r.LookupA(ctx, "broken.example")
	assert.Error(t, err)
}
