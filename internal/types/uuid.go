package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_01HZY3M8D3K6W4XG1Q2W8N5T7B
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

// initializeSID initializes the shortid generator once
func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GeneratePaymentLinkID returns the public id used in payment urls, e.g. `x2rT9kq01j5n8fq3w2ab`.
// The short id keeps links readable and the ulid entropy suffix keeps them unguessable.
func GeneratePaymentLinkID() string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		id = ""
	}
	id = strings.NewReplacer("-", "", "_", "").Replace(id)

	entropy := strings.ToLower(ulid.Make().String())
	return id + entropy[len(entropy)-12:]
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_INVOICE       = "inv"
	UUID_PREFIX_INVOICE_ITEM  = "inv_item"
	UUID_PREFIX_TRANSACTION   = "txn"
	UUID_PREFIX_USER          = "user"
	UUID_PREFIX_PAYMENT_LINK  = "plink"
	UUID_PREFIX_WEBHOOK_EVENT = "whevt"
	UUID_PREFIX_NOTIFICATION  = "ntf"
)
