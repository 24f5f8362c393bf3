package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme marker expected before the token.
const BearerScheme = "Bearer"

// TokenIssuer is stamped into every token and required on verification.
const TokenIssuer = "farmtrack"
