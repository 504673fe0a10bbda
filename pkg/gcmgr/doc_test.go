package gcmgr

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/serverlessresearch/gcrest/pkg/storage"
	"github.com/sirupsen/logrus"
)

func Example() {
	mgrArgs := map[string]interface{}{}
	// ./gcrest.yaml holds transport settings and, optionally, an access token
	mgrArgs["config-file"] = "./gcrest.yaml"

	// Adding a custom logger is optional
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	mgrArgs["logger"] = logger

	mgr, err := NewManager(mgrArgs)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Destroy()

	task := mgr.Storage.GetMetadata(storage.NewParent("my-bucket", "reports/q1.csv"), storage.GetOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !task.Await(ctx) {
		fmt.Printf("Request failed: %v\n", task.Err())
		os.Exit(1)
	}
	fmt.Println(task.Result().Payload)
}
