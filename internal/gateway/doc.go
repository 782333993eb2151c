// Package gateway — аутентифицированный клиент LLM chat-completion
// endpoint'а.
//
// Клиент владеет жизненным циклом access-токена ({NoToken, HasToken}),
// общим бюджетом повторных попыток и нормализацией ответов.
// Токен выдаёт внешний provisioning-коллаборатор (TokenProvider);
// о его семантике не предполагается ничего, кроме формата ответа
// {access_token, baseURL?}.
package gateway
