package loadtest

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

func RunMultiFromCLI(logger *zap.SugaredLogger, args []string) error {
	host, maxDocuments, err := parseMultiRunArgs(args)
	if err != nil {
		return err
	}
	return StartMultiLoadTest(logger, host, maxDocuments)
}

func parseMultiRunArgs(args []string) (string, int, error) {
	fs := flag.NewFlagSet("multiload", flag.ContinueOnError)
	host := fs.String("host", defaultHost, "The host to test")
	maxDocuments := fs.Int("maxDocuments", 10, "Maximum number of documents")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*host = args[0]
		args = args[1:]
	}

	err := fs.Parse(args)
	return *host, *maxDocuments, err
}

// StartMultiLoadTest runs one loadtest child process per document, each with
// three authors for 30 seconds.
func StartMultiLoadTest(logger *zap.SugaredLogger, host string, maxDocuments int) error {
	if maxDocuments <= 0 {
		maxDocuments = 10
	}

	fmt.Printf("Starting multi-document load test: %d documents for 30 seconds each\n", maxDocuments)

	executable, err := os.Executable()
	if err != nil {
		logger.Errorf("Failed to get executable path: %v", err)
		return err
	}

	var wg sync.WaitGroup
	errs := make(chan error, maxDocuments)
	for i := 0; i < maxDocuments; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			cmd := exec.Command(executable, "loadtest", host, "-a", "3", "-d", "30")
			cmd.Env = append(os.Environ(), "SILENT_METRICS=true")

			output, err := cmd.CombinedOutput()
			if err != nil {
				logger.Errorf("Child process %d exited with error: %v\nOutput: %s", id, err, output)
				errs <- fmt.Errorf("document %d: %w", id, err)
			}
		}(i)

		time.Sleep(100 * time.Millisecond)
	}

	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}
	fmt.Println("Multi-document load test completed successfully")
	return nil
}
