package proxy

import (
	"net"
	"strconv"
	"testing"

	"github.com/tushar5526/sarthi/internal/compose"
)

func listenOn(t *testing.T, port int) net.Listener {
	t.Helper()

	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("listen on %d: %v", port, err)
	}

	return l
}

func TestFindFreePort_SkipsOccupiedPorts_Invariant5(t *testing.T) {
	const start = 25100

	busy := listenOn(t, start)
	defer busy.Close()

	mgr := New(Config{DockerHost: "127.0.0.1", PortStart: start, PortEnd: start + 5})

	port, err := mgr.FindFreePort()
	if err != nil {
		t.Fatalf("FindFreePort() error = %v", err)
	}

	if port == start {
		t.Fatalf("FindFreePort returned occupied port %d", port)
	}

	if port < start || port > start+5 {
		t.Fatalf("port %d out of range [%d,%d]", port, start, start+5)
	}
}

func TestFindFreePort_ExhaustionFails(t *testing.T) {
	const start = 25200

	l1 := listenOn(t, start)
	defer l1.Close()

	mgr := New(Config{DockerHost: "127.0.0.1", PortStart: start, PortEnd: start})

	if _, err := mgr.FindFreePort(); err == nil {
		t.Fatal("expected ErrNoFreePort when range is exhausted")
	}
}

func TestGenerateInnerConf_Invariant6(t *testing.T) {
	mgr := New(Config{DomainName: "localhost"})

	table := compose.ServicePortTable{
		"web": {{HostPort: "8080", ContainerPort: "80"}, {HostPort: "9090", ContainerPort: "90"}},
		"db":  {},
	}

	dir := t.TempDir()

	path, urls, err := mgr.GenerateInnerConf(dir, "p", "main", "abc1234567", table, []string{"web", "db"})
	if err != nil {
		t.Fatalf("GenerateInnerConf() error = %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("urls = %+v, want 2 entries (one per service,port pair)", urls)
	}

	want := []string{
		"http://p-main-8080-abc1234567.localhost",
		"http://p-main-9090-abc1234567.localhost",
	}

	for i, u := range want {
		if urls[i] != u {
			t.Fatalf("urls[%d] = %s, want %s", i, urls[i], u)
		}
	}

	if path == "" {
		t.Fatal("expected non-empty conf path")
	}
}
