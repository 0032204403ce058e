package internal

import (
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Retorna timestamp UTC atual
func Now() time.Time {
	return time.Now().UTC()
}

// Dia de vencimento precisa caber em todos os meses (1 a 28)
func ClampDueDay(d int) int {
	if d < 1 {
		return 1
	}
	if d > 28 {
		return 28
	}
	return d
}

// Mês seguinte, virando o ano em dezembro
func NextMonth(month, year int) (int, int) {
	if month == 12 {
		return 1, year + 1
	}
	return month + 1, year
}

// Vencimento da parcela de um mês de referência
func DueDateFor(month, year, dueDay int) time.Time {
	return time.Date(year, time.Month(month), ClampDueDay(dueDay), 0, 0, 0, 0, time.UTC)
}

// Remove caracteres não numéricos
func SanitizePhone(phone string) string {
	r := regexp.MustCompile(`\D`)
	return r.ReplaceAllString(phone, "")
}

// Converte string para uint com default
func ParseUint(s string, def uint) uint {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return def
	}
	return uint(n)
}

// Responde erro padronizado
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// Registra regras extras no validator do gin
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("dueday", func(fl validator.FieldLevel) bool {
			d := fl.Field().Int()
			return d >= 1 && d <= 28
		})
	}
}
