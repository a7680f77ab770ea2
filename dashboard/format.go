package dashboard

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer  = message.NewPrinter(language.BrazilianPortuguese)
	brlScale = cashScale(currency.BRL)
)

func cashScale(unit currency.Unit) int {
	scale, _ := currency.Cash.Rounding(unit)
	return scale
}

// FormatBRL renders cents as Brazilian reais, e.g. 260000 as "R$ 2.600,00".
func FormatBRL(cents int64) string {
	amount := float64(cents) / math.Pow10(brlScale)
	return "R$ " + printer.Sprintf("%.*f", brlScale, amount)
}

// FormatCount groups digits the Brazilian way.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

var shortMonths = [...]string{"jan.", "fev.", "mar.", "abr.", "mai.", "jun.", "jul.", "ago.", "set.", "out.", "nov.", "dez."}

// FormatDate renders t like "9 de mai. de 2024".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), shortMonths[t.Month()-1], t.Year())
}
