package response

import (
	"net/http"

	"sum-admin/internal/domain"
)

// kindStatus 领域错误分类 -> HTTP 状态码
var kindStatus = map[domain.Kind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindConflict:     http.StatusConflict,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindStore:        http.StatusInternalServerError,
}

// CodeMsgMap 状态码的默认 message
var CodeMsgMap = map[int]string{
	http.StatusOK:                    "OK",
	http.StatusCreated:               "Creado",
	http.StatusBadRequest:            "Solicitud inválida",
	http.StatusUnauthorized:          "No autorizado",
	http.StatusForbidden:             "Prohibido",
	http.StatusNotFound:              "No encontrado",
	http.StatusConflict:              "Conflicto",
	http.StatusRequestEntityTooLarge: "Cuerpo de la solicitud demasiado grande",
	http.StatusTooManyRequests:       "Demasiadas solicitudes",
	http.StatusInternalServerError:   "Error interno del servidor",
	http.StatusBadGateway:            "Error en el servicio remoto",
	http.StatusServiceUnavailable:    "Servidor ocupado",
	http.StatusGatewayTimeout:        "Tiempo de espera agotado",
}

func StatusOf(err error) int {
	if s, ok := kindStatus[domain.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
