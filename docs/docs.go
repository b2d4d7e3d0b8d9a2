// Package docs 는 swag 형식의 OpenAPI 문서를 등록한다.
// swag init 출력과 같은 모양으로 직접 관리하므로 handler 의 godoc 주석을 바꾸면 여기도 고친다.
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
    "paths": {
        "/detect-intent": {
            "post": {
                "description": "질의(및 선택적 이미지/PDF)와 대화 기록을 받아 intent backend 응답과 재작성된 응답을 반환한다.\nmultipart/form-data 로 보내면 history 는 JSON 문자열이다. 세션 쿠키는 성공 응답마다 갱신된다.",
                "consumes": [
                    "multipart/form-data",
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "chat"
                ],
                "summary": "대화 턴 처리",
                "parameters": [
                    {
                        "type": "string",
                        "description": "user query (required unless file is present)",
                        "name": "query",
                        "in": "formData"
                    },
                    {
                        "type": "file",
                        "description": "image/jpeg, image/png or application/pdf",
                        "name": "file",
                        "in": "formData"
                    },
                    {
                        "type": "string",
                        "description": "JSON array of {role, message}",
                        "name": "history",
                        "in": "formData"
                    },
                    {
                        "description": "JSON turn request",
                        "name": "body",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/dto.TurnRequestDTO"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.TurnResponseDTO"
                        }
                    },
                    "400": {
                        "description": "missing_query, invalid_file_type, invalid_history, invalid_request",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponseDTO"
                        }
                    },
                    "413": {
                        "description": "file_too_large",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponseDTO"
                        }
                    },
                    "500": {
                        "description": "configuration_error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponseDTO"
                        }
                    },
                    "503": {
                        "description": "extraction_failed, intent_detection_failed",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponseDTO"
                        }
                    }
                }
            }
        },
        "/session": {
            "delete": {
                "description": "세션 쿠키 두 개를 만료시킨다. 다음 턴은 새 세션 id 로 시작한다.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "chat"
                ],
                "summary": "대화 세션 초기화",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.MessageResponseDTO"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "dto.DiagnosticsDTO": {
            "type": "object",
            "properties": {
                "confidence": {
                    "type": "number",
                    "example": 0.82
                },
                "contextDegraded": {
                    "type": "boolean"
                },
                "intentName": {
                    "type": "string",
                    "example": "savings.amount"
                },
                "languageCode": {
                    "type": "string",
                    "example": "en"
                },
                "rewriteFallback": {
                    "type": "boolean"
                },
                "sessionId": {
                    "type": "string",
                    "example": "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
                }
            }
        },
        "dto.ErrorResponseDTO": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string",
                    "example": "intent_detection_failed"
                }
            }
        },
        "dto.HistoryMessageDTO": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string",
                    "example": "How much do you want to save?"
                },
                "role": {
                    "type": "string",
                    "example": "assistant"
                }
            }
        },
        "dto.MessageResponseDTO": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string",
                    "example": "session reset"
                }
            }
        },
        "dto.TurnRequestDTO": {
            "type": "object",
            "properties": {
                "history": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dto.HistoryMessageDTO"
                    }
                },
                "query": {
                    "type": "string",
                    "example": "idk"
                }
            }
        },
        "dto.TurnResponseDTO": {
            "type": "object",
            "properties": {
                "agentReply": {
                    "type": "string",
                    "example": "How much would you like to save each month?"
                },
                "diagnostics": {
                    "$ref": "#/definitions/dto.DiagnosticsDTO"
                },
                "enhancedQuery": {
                    "type": "string",
                    "example": "I don't know how much I want to save."
                },
                "rewrittenReply": {
                    "type": "string",
                    "example": "That's okay! How much can you save each month?"
                },
                "sessionId": {
                    "type": "string",
                    "example": "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Assist Chat API",
	Description:      "Conversational banking assistance for migrant workers: intent detection with context enhancement and response rewriting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
