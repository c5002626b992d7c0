package common

// AuthorizationHeaderName carries the bearer access token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// TwoFactorCodeLength is the number of decimal digits in an emailed login code.
const TwoFactorCodeLength = 6
