// Package jwt issues and decodes the HS256 tokens that carry tenant identity.
//
// Access and refresh tokens share one claim set ({company_id, email,
// subscription_plan, type, iat, exp, jti}); the "type" claim keeps them from
// being used interchangeably. Password reset tokens use a separate claim set with
// purpose=password_reset.
package jwt
