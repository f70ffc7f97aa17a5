package cartagent

import (
	"os"
	"strings"

	"github.com/autopeer-io/assistcart/pkg/log"
)

// discoverCartID prefers the provisioned identity file and falls back to the
// configured ID.
func discoverCartID(idFile, configured string) string {
	if idFile == "" {
		return configured
	}

	content, err := os.ReadFile(idFile)
	if err != nil {
		log.Warn("Cart ID file not readable, using configured ID", "file", idFile, "err", err.Error())
		return configured
	}
	if id := strings.TrimSpace(string(content)); id != "" {
		log.Info("Cart ID detected from file", "id", id)
		return id
	}
	return configured
}
