package e2e

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"
)

var (
	appURL string
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "testpass123"
)

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

func runTestMain(m *testing.M) int {
	workDir, err := os.MkdirTemp("", "budgetbook-e2e")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(workDir)

	// 1. Build the binary. Tests run from e2e/ (go test ./e2e/...) or from the root.
	pkg := "../cmd/server"
	if _, err := os.Stat(pkg); os.IsNotExist(err) {
		pkg = "./cmd/server"
	}
	buildPath := filepath.Join(workDir, "budgetbook")
	if output, err := exec.Command("go", "build", "-o", buildPath, pkg).CombinedOutput(); err != nil {
		fmt.Printf("Failed to build app: %v\n%s\n", err, output)
		return 1
	}

	// 2. Start the server on a free port with a fresh database
	port, err := freePort()
	if err != nil {
		fmt.Printf("Failed to find a free port: %v\n", err)
		return 1
	}
	appURL = "http://localhost:" + strconv.Itoa(port)

	serverCmd := exec.Command(buildPath)
	serverCmd.Dir = workDir
	serverCmd.Env = append(os.Environ(),
		"PORT="+strconv.Itoa(port),
		"DB_DRIVER=sqlite",
		"DB_PATH="+filepath.Join(workDir, "expenses.db"),
		"SECRET_KEY=e2e-secret",
		"LOG_ENV=dev",
		"ADMIN_EMAIL="+adminEmail,
		"ADMIN_PASSWORD="+adminPassword,
	)
	serverCmd.Stdout = os.Stdout
	serverCmd.Stderr = os.Stderr

	if err := serverCmd.Start(); err != nil {
		fmt.Printf("Failed to start server: %v\n", err)
		return 1
	}
	defer stopServer(serverCmd)

	if !waitReady(appURL+"/", 5*time.Second) {
		fmt.Println("Server failed to start or is not reachable")
		return 1
	}

	// 3. Run tests
	return m.Run()
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitReady(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// stopServer asks for a graceful shutdown and kills the process if it does not exit in time.
func stopServer(cmd *exec.Cmd) {
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
		return
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		fmt.Println("Server did not stop in time, killing it")
		_ = cmd.Process.Kill()
	}
}
