package members

import "context"

// OwnerOf expone el ownerUserID de un familiar.
// Lo consumen access y medicines sin importar este paquete.
func (s *Service) OwnerOf(ctx context.Context, memberID string) (string, error) {
	m, err := s.GetByID(ctx, memberID)
	if err != nil {
		return "", err
	}
	return m.OwnerUserID, nil
}
