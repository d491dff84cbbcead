package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberTimeLayout = "20060102150405"

// OrderNumberGenerator gera order_numbers ordenáveis pelo horário de criação
type OrderNumberGenerator interface {
	Next(now time.Time) (string, error)
}

// UUIDOrderNumberGenerator usa o horário + 48 bits aleatórios de um UUIDv7.
// A unicidade final é garantida pela constraint de orders.order_number.
type UUIDOrderNumberGenerator struct{}

// Next gera o próximo order_number no formato YYYYMMDDhhmmss-XXXXXXXXXXXX
func (UUIDOrderNumberGenerator) Next(now time.Time) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}

	hex := strings.ReplaceAll(id.String(), "-", "")
	return now.UTC().Format(orderNumberTimeLayout) + "-" + strings.ToUpper(hex[len(hex)-12:]), nil
}
