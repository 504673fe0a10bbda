// Handles the "gcrest firestore" command. This command exists solely to
// contain Firestore document and transaction subcommands.

package cmd

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/serverlessresearch/gcrest/pkg/firestore"
	"github.com/spf13/cobra"
)

var firestoreCmd = &cobra.Command{
	Use:   "firestore",
	Short: "Firestore documents",
	Long: `Commands for reading and writing Firestore documents. Document paths are
relative to the database's documents root, e.g. "users/alice".`,
}

// Filled in by cobra argument parsing in init()
var firestoreCmdConfig struct {
	document    string
	collection  string
	id          string
	fields      string
	mask        string
	updateMask  string
	exists      string
	transaction string
	readOnly    bool
	pageSize    int
	pageToken   string
	orderBy     string
	where       string
	limit       int
}

// precondition turns --exists=true|false into a precondition.
func precondition() (firestore.Precondition, error) {
	switch firestoreCmdConfig.exists {
	case "":
		return firestore.Precondition{}, nil
	case "true":
		return firestore.Exists(true), nil
	case "false":
		return firestore.Exists(false), nil
	}
	return firestore.Precondition{}, errors.Errorf("--exists must be true or false, not %q", firestoreCmdConfig.exists)
}

var firestoreGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Read one document",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := firestore.GetDocumentOptions{
			Mask:        firestore.MaskOf(firestoreCmdConfig.mask),
			Transaction: firestoreCmdConfig.transaction,
		}
		return await(manager.Firestore.GetDocument(manager.Parent(), firestoreCmdConfig.document, opts))
	},
}

var firestoreCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a document in a collection",
	Long: `Create a document from --fields "name=alice,age=30". Values that parse as
null, booleans or numbers are stored with that type, everything else is a string.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if firestoreCmdConfig.id != "" {
			name = firestoreCmdConfig.collection + "/" + firestoreCmdConfig.id
		}
		doc := parseDocument(name, firestoreCmdConfig.fields)
		return await(manager.Firestore.CreateDocument(manager.Parent(),
			firestoreCmdConfig.collection, firestoreCmdConfig.id,
			firestore.MaskOf(firestoreCmdConfig.mask), doc))
	},
}

var firestorePatchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Update fields of a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		pre, err := precondition()
		if err != nil {
			return err
		}
		opts := firestore.PatchDocumentOptions{
			UpdateMask:      firestore.MaskOf(firestoreCmdConfig.updateMask),
			Mask:            firestore.MaskOf(firestoreCmdConfig.mask),
			CurrentDocument: pre,
		}
		doc := parseDocument(firestoreCmdConfig.document, firestoreCmdConfig.fields)
		return await(manager.Firestore.PatchDocument(manager.Parent(), firestoreCmdConfig.document, opts, doc))
	},
}

var firestoreDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		pre, err := precondition()
		if err != nil {
			return err
		}
		return await(manager.Firestore.DeleteDocument(manager.Parent(), firestoreCmdConfig.document, pre))
	},
}

var firestoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the documents of a collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := firestore.ListDocumentsOptions{
			PageSize:    firestoreCmdConfig.pageSize,
			PageToken:   firestoreCmdConfig.pageToken,
			OrderBy:     firestoreCmdConfig.orderBy,
			Mask:        firestore.MaskOf(firestoreCmdConfig.mask),
			Transaction: firestoreCmdConfig.transaction,
		}
		return await(manager.Firestore.ListDocuments(manager.Parent(), firestoreCmdConfig.collection, opts))
	},
}

var firestoreCollectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collection ids below a document, or at the root",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := firestore.ListCollectionIdsOptions{
			PageSize:  firestoreCmdConfig.pageSize,
			PageToken: firestoreCmdConfig.pageToken,
		}
		return await(manager.Firestore.ListCollectionIds(manager.Parent(), firestoreCmdConfig.document, opts))
	},
}

// parseWhere reads "field op value", e.g. "age >= 21".
func parseWhere(s string) (*firestore.Filter, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return nil, errors.Errorf("--where wants \"field op value\", got %q", s)
	}
	ops := map[string]string{
		"<":  firestore.OpLessThan,
		"<=": firestore.OpLessThanOrEqual,
		">":  firestore.OpGreaterThan,
		">=": firestore.OpGreaterThanOrEqual,
		"==": firestore.OpEqual,
		"!=": firestore.OpNotEqual,
	}
	op, ok := ops[parts[1]]
	if !ok {
		return nil, errors.Errorf("unknown operator %q", parts[1])
	}
	f := firestore.Where(parts[0], op, parseValue(parts[2]))
	return &f, nil
}

var firestoreQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a structured query over a collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := firestore.NewQuery(firestoreCmdConfig.collection).WithLimit(firestoreCmdConfig.limit)
		where, err := parseWhere(firestoreCmdConfig.where)
		if err != nil {
			return err
		}
		if where != nil {
			q.Filter(*where)
		}
		if f := firestoreCmdConfig.orderBy; f != "" {
			dir := firestore.Ascending
			if strings.HasSuffix(f, " desc") {
				f, dir = strings.TrimSuffix(f, " desc"), firestore.Descending
			}
			q.OrderByField(f, dir)
		}
		opts := firestore.RunQueryOptions{Query: q, Transaction: firestoreCmdConfig.transaction}
		return await(manager.Firestore.RunQuery(manager.Parent(), firestoreCmdConfig.document, opts))
	},
}

var firestoreBeginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Begin a transaction and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := firestore.TransactionOptions{ReadOnly: firestoreCmdConfig.readOnly}
		return await(manager.Firestore.BeginTransaction(manager.Parent(), opts))
	},
}

var firestoreRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back a transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		if firestoreCmdConfig.transaction == "" {
			return errors.New("--transaction is required")
		}
		return await(manager.Firestore.Rollback(manager.Parent(), firestoreCmdConfig.transaction))
	},
}

var firestoreCommitDeleteCmd = &cobra.Command{
	Use:   "commit-delete",
	Short: "Commit the deletion of one or more documents atomically",
	RunE: func(cmd *cobra.Command, args []string) error {
		pre, err := precondition()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return errors.New("name at least one document path")
		}
		writes := firestore.NewWrites(firestoreCmdConfig.transaction)
		for _, path := range args {
			writes.Add(firestore.DeleteWrite(path, pre))
		}
		return await(manager.Firestore.Commit(manager.Parent(), writes))
	},
}

func init() {
	rootCmd.AddCommand(firestoreCmd)
	flags := &firestoreCmdConfig

	firestoreCmd.AddCommand(firestoreGetCmd)
	firestoreGetCmd.Flags().StringVarP(&flags.document, "document", "d", "", "document path")
	firestoreGetCmd.Flags().StringVarP(&flags.mask, "mask", "m", "", "fields to return: a,b.c")
	firestoreGetCmd.Flags().StringVarP(&flags.transaction, "transaction", "t", "", "read within this transaction")

	firestoreCmd.AddCommand(firestoreCreateCmd)
	firestoreCreateCmd.Flags().StringVarP(&flags.collection, "collection", "c", "", "collection id, may be a path like users/alice/posts")
	firestoreCreateCmd.Flags().StringVar(&flags.id, "id", "", "document id, generated by the server if unset")
	firestoreCreateCmd.Flags().StringVarP(&flags.fields, "fields", "f", "", "field1=value1,field2=value2")
	firestoreCreateCmd.Flags().StringVarP(&flags.mask, "mask", "m", "", "fields to return: a,b.c")

	firestoreCmd.AddCommand(firestorePatchCmd)
	firestorePatchCmd.Flags().StringVarP(&flags.document, "document", "d", "", "document path")
	firestorePatchCmd.Flags().StringVarP(&flags.fields, "fields", "f", "", "field1=value1,field2=value2")
	firestorePatchCmd.Flags().StringVarP(&flags.updateMask, "update-mask", "u", "", "fields to update: a,b.c")
	firestorePatchCmd.Flags().StringVarP(&flags.mask, "mask", "m", "", "fields to return: a,b.c")
	firestorePatchCmd.Flags().StringVar(&flags.exists, "exists", "", "require the document to exist (true) or not (false)")

	firestoreCmd.AddCommand(firestoreDeleteCmd)
	firestoreDeleteCmd.Flags().StringVarP(&flags.document, "document", "d", "", "document path")
	firestoreDeleteCmd.Flags().StringVar(&flags.exists, "exists", "", "require the document to exist (true) or not (false)")

	firestoreCmd.AddCommand(firestoreListCmd)
	firestoreListCmd.Flags().StringVarP(&flags.collection, "collection", "c", "", "collection id or path")
	firestoreListCmd.Flags().IntVar(&flags.pageSize, "page-size", firestore.DefaultPageSize, "documents per page")
	firestoreListCmd.Flags().StringVar(&flags.pageToken, "page-token", "", "continue a previous listing")
	firestoreListCmd.Flags().StringVar(&flags.orderBy, "order-by", "", "e.g. \"age desc,name\"")
	firestoreListCmd.Flags().StringVarP(&flags.mask, "mask", "m", "", "fields to return: a,b.c")
	firestoreListCmd.Flags().StringVarP(&flags.transaction, "transaction", "t", "", "read within this transaction")

	firestoreCmd.AddCommand(firestoreCollectionsCmd)
	firestoreCollectionsCmd.Flags().StringVarP(&flags.document, "document", "d", "", "parent document path, the root if unset")
	firestoreCollectionsCmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "ids per page")
	firestoreCollectionsCmd.Flags().StringVar(&flags.pageToken, "page-token", "", "continue a previous listing")

	firestoreCmd.AddCommand(firestoreQueryCmd)
	firestoreQueryCmd.Flags().StringVarP(&flags.document, "document", "d", "", "parent document path, the root if unset")
	firestoreQueryCmd.Flags().StringVarP(&flags.collection, "collection", "c", "", "collection id")
	firestoreQueryCmd.Flags().StringVarP(&flags.where, "where", "w", "", "filter as \"field op value\"")
	firestoreQueryCmd.Flags().StringVar(&flags.orderBy, "order-by", "", "field, optionally followed by \" desc\"")
	firestoreQueryCmd.Flags().IntVarP(&flags.limit, "limit", "l", 0, "maximum results")
	firestoreQueryCmd.Flags().StringVarP(&flags.transaction, "transaction", "t", "", "read within this transaction")

	firestoreCmd.AddCommand(firestoreBeginCmd)
	firestoreBeginCmd.Flags().BoolVar(&flags.readOnly, "read-only", false, "begin a read-only transaction")

	firestoreCmd.AddCommand(firestoreRollbackCmd)
	firestoreRollbackCmd.Flags().StringVarP(&flags.transaction, "transaction", "t", "", "transaction id")

	firestoreCmd.AddCommand(firestoreCommitDeleteCmd)
	firestoreCommitDeleteCmd.Flags().StringVarP(&flags.transaction, "transaction", "t", "", "commit within this transaction")
	firestoreCommitDeleteCmd.Flags().StringVar(&flags.exists, "exists", "", "require each document to exist (true) or not (false)")
}
