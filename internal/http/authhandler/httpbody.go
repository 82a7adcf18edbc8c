package authhandler

type CredentialsBody struct {
	Username string `json:"username" binding:"required,min=2,max=64"`
	Password string `json:"password" binding:"required,min=4,max=128"`
} // @name CredentialsRequest

type RegisterResponse struct {
	Ok bool   `json:"ok"`
	ID string `json:"id"`
} // @name RegisterResponse

type TokenResponse struct {
	Token string `json:"token"`
} // @name TokenResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
