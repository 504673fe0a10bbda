// Common request helpers shared by the subcommands
package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/firestore"
	"github.com/serverlessresearch/gcrest/pkg/values"
)

// await waits for task and prints its payload, if any.
func await(task *dispatch.Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ok := task.Await(ctx)
	r := task.Result()
	if !ok {
		if !task.Done() {
			return errors.Errorf("request did not complete within %s", requestTimeout)
		}
		if r.Payload != "" {
			return errors.Wrap(task.Err(), r.Payload)
		}
		return task.Err()
	}
	if r.Payload != "" {
		fmt.Println(r.Payload)
	}
	return nil
}

// parseValue infers a typed value from command line text. Anything that is
// not null, a bool or a number stays a string.
func parseValue(s string) values.Value {
	switch s {
	case "null":
		return values.Null()
	case "true":
		return values.Bool(true)
	case "false":
		return values.Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return values.Integer(i)
	}
	if d, err := strconv.ParseFloat(s, 64); err == nil {
		return values.Double(d)
	}
	return values.String(s)
}

// parseDocument builds a document from "field1=value1,field2=value2".
// Fields are added in name order.
func parseDocument(name, fields string) *firestore.Document {
	doc := firestore.NewDocument(name)
	kv := parseKeyValue(fields)
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Add(k, parseValue(kv[k]))
	}
	return doc
}
