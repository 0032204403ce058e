package internal

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Erros de domínio devolvidos pelos serviços; os handlers traduzem para HTTP.
var (
	ErrNotFound             = errors.New("registro não encontrado")
	ErrForbidden            = errors.New("operação não permitida para este usuário")
	ErrAlreadyEnded         = errors.New("contrato já encerrado")
	ErrInvalidType          = errors.New("tipo inválido")
	ErrDuplicateInstallment = errors.New("parcela já gerada para este mês")
)

// RespondDomainError traduz um erro de serviço para a resposta HTTP padrão.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		RespondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyEnded):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidType):
		RespondError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		RespondError(c, http.StatusInternalServerError, "erro interno")
	}
}
