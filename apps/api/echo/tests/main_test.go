package tests

import (
	"fmt"
	"io"
	"log"
	"os"
	"testing"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
	logsvc "github.com/trezcool/classroom/services/logger"
)

func TestMain(m *testing.M) {
	if err := core.ParseEmailTemplates(true /* strict */); err != nil {
		fmt.Printf("ParseEmailTemplates(): %v", err)
		os.Exit(1)
	}
	user.LoadCommonPasswords(logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), newTestConfig("")))

	os.Exit(m.Run())
}
