// Package docs registra el documento OpenAPI que sirve /swagger.
// Está escrito a mano y solo lista rutas y tags; el detalle de parámetros
// y respuestas vive en las anotaciones de cada handler.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "tags": [
        {"name": "members"},
        {"name": "grants"},
        {"name": "records"},
        {"name": "appointments"},
        {"name": "medicines"},
        {"name": "doctor"}
    ],
    "paths": {
        "/members": {
            "get": {"tags": ["members"], "summary": "Listar mis familiares", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["members"], "summary": "Registrar familiar", "responses": {"201": {"description": "Created"}}}
        },
        "/members/{memberID}": {
            "get": {"tags": ["members"], "summary": "Perfil de un familiar", "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["members"], "summary": "Editar perfil", "responses": {"200": {"description": "OK"}}}
        },
        "/me/patients": {
            "get": {"tags": ["members"], "summary": "Pacientes compartidos conmigo", "responses": {"200": {"description": "OK"}}}
        },
        "/members/{memberID}/grants": {
            "get": {"tags": ["grants"], "summary": "Listar grants de un familiar", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["grants"], "summary": "Invitar a un médico", "responses": {"201": {"description": "Created"}}}
        },
        "/me/grants": {
            "get": {"tags": ["grants"], "summary": "Mis invitaciones", "responses": {"200": {"description": "OK"}}}
        },
        "/grants/{grantID}/accept": {
            "post": {"tags": ["grants"], "summary": "Aceptar grant", "responses": {"200": {"description": "OK"}}}
        },
        "/grants/{grantID}/revoke": {
            "post": {"tags": ["grants"], "summary": "Revocar grant", "responses": {"200": {"description": "OK"}}}
        },
        "/members/{memberID}/records": {
            "get": {"tags": ["records"], "summary": "Listar registros", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["records"], "summary": "Crear registro", "responses": {"201": {"description": "Created"}}}
        },
        "/members/{memberID}/records/{recordID}/void": {
            "post": {"tags": ["records"], "summary": "Anular registro", "responses": {"200": {"description": "OK"}}}
        },
        "/members/{memberID}/appointments": {
            "get": {"tags": ["appointments"], "summary": "Listar citas", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["appointments"], "summary": "Agendar cita", "responses": {"201": {"description": "Created"}}}
        },
        "/members/{memberID}/appointments/{appointmentID}": {
            "patch": {"tags": ["appointments"], "summary": "Actualizar estado o notas", "responses": {"200": {"description": "OK"}}}
        },
        "/medicines": {
            "get": {"tags": ["medicines"], "summary": "Listar medicinas", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["medicines"], "summary": "Agregar medicina", "responses": {"201": {"description": "Created"}}}
        },
        "/medicines/status": {
            "get": {"tags": ["medicines"], "summary": "Tablero de dosis (Due / Next / Taken)", "responses": {"200": {"description": "OK"}}}
        },
        "/medicines/summary": {
            "get": {"tags": ["medicines"], "summary": "Resumen por familiar", "responses": {"200": {"description": "OK"}}}
        },
        "/medicines/{medicineID}/taken": {
            "post": {"tags": ["medicines"], "summary": "Marcar dosis tomada", "responses": {"200": {"description": "OK"}}}
        },
        "/medicines/{medicineID}/skip": {
            "post": {"tags": ["medicines"], "summary": "Marcar dosis salteada", "responses": {"200": {"description": "OK"}}}
        },
        "/doctor/dashboard": {
            "get": {"tags": ["doctor"], "summary": "Dashboard del médico", "responses": {"200": {"description": "OK"}}}
        },
        "/patients/search": {
            "get": {"tags": ["doctor"], "summary": "Buscar pacientes", "responses": {"200": {"description": "OK"}}}
        },
        "/patients/{memberID}": {
            "get": {"tags": ["doctor"], "summary": "Perfil completo del paciente", "responses": {"200": {"description": "OK"}}}
        },
        "/patients/{memberID}/notes": {
            "post": {"tags": ["doctor"], "summary": "Agregar nota del médico", "responses": {"201": {"description": "Created"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CareHive API",
	Description:      "Seguimiento médico familiar: familiares, medicinas y estado de dosis, registros, citas y acceso de médicos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
